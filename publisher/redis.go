// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package publisher

import (
	"time"

	"github.com/garyburd/redigo/redis"
)

const (
	DefaultHash  = "platina"
	RedisTimeout = 500 * time.Millisecond
)

// Redis stores each key as a field of Hash and publishes "KEY: VALUE", or
// "delete: KEY", on the channel of the same name. Commands are pipelined
// until Flush.
type Redis struct {
	Hash string

	conn    redis.Conn
	pending int
	err     error
}

func DialRedis(network, address, hash string) (*Redis, error) {
	conn, err := redis.Dial(network, address,
		redis.DialConnectTimeout(RedisTimeout),
		redis.DialReadTimeout(RedisTimeout),
		redis.DialWriteTimeout(RedisTimeout))
	if err != nil {
		return nil, err
	}
	return NewRedis(conn, hash), nil
}

func NewRedis(conn redis.Conn, hash string) *Redis {
	if len(hash) == 0 {
		hash = DefaultHash
	}
	return &Redis{Hash: hash, conn: conn}
}

func (r *Redis) send(cmd string, args ...interface{}) {
	if err := r.conn.Send(cmd, args...); err != nil && r.err == nil {
		r.err = err
	}
	r.pending++
}

func (r *Redis) Set(key, value string) {
	r.send("HSET", r.Hash, key, value)
	r.send("PUBLISH", r.Hash, key+": "+value)
}

func (r *Redis) Delete(key string) {
	r.send("HDEL", r.Hash, key)
	r.send("PUBLISH", r.Hash, "delete: "+key)
}

// Flush sends the pipeline and waits for its replies.
func (r *Redis) Flush() error {
	if r.pending == 0 {
		return nil
	}
	_, err := r.conn.Do("")
	if r.err != nil {
		err = r.err
	}
	r.pending = 0
	r.err = nil
	return err
}

func (r *Redis) Close() error { return r.conn.Close() }
