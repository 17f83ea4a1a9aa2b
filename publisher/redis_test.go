// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package publisher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type command struct {
	name string
	args []interface{}
}

type fakeConn struct {
	sent    []command
	flushes int
	err     error
	closed  bool
}

func (c *fakeConn) Close() error { c.closed = true; return nil }
func (c *fakeConn) Err() error   { return nil }

func (c *fakeConn) Do(name string, args ...interface{}) (interface{}, error) {
	if len(name) == 0 {
		c.flushes++
		return nil, c.err
	}
	c.sent = append(c.sent, command{name, args})
	return nil, c.err
}

func (c *fakeConn) Send(name string, args ...interface{}) error {
	c.sent = append(c.sent, command{name, args})
	return nil
}

func (c *fakeConn) Flush() error                  { return nil }
func (c *fakeConn) Receive() (interface{}, error) { return nil, nil }

func TestRedis(t *testing.T) {
	conn := new(fakeConn)
	r := NewRedis(conn, "")
	assert.Equal(t, DefaultHash, r.Hash)

	assert.NoError(t, r.Flush())
	assert.Equal(t, 0, conn.flushes)

	r.Set("psu0.v_out.units.V", "12.000")
	r.Delete("psu0.sn")
	assert.Equal(t, []command{
		{"HSET", []interface{}{"platina", "psu0.v_out.units.V", "12.000"}},
		{"PUBLISH", []interface{}{"platina", "psu0.v_out.units.V: 12.000"}},
		{"HDEL", []interface{}{"platina", "psu0.sn"}},
		{"PUBLISH", []interface{}{"platina", "delete: psu0.sn"}},
	}, conn.sent)
	assert.NoError(t, r.Flush())
	assert.Equal(t, 1, conn.flushes)

	conn.err = errors.New("EOF")
	r.Set("psu0.mfg_id", "DELL")
	assert.EqualError(t, r.Flush(), "EOF")

	assert.NoError(t, r.Close())
	assert.True(t, conn.closed)
}
