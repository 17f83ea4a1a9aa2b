// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package publisher delivers "KEY: VALUE" state to redis and MQTT.
//
// Backends queue Set and Delete and deliver them on Flush. A Cache in
// front of them suppresses values that have not changed since last
// published.
package publisher

import (
	"fmt"
	"sort"
	"strconv"
)

type Publisher interface {
	Set(key, value string)
	Delete(key string)
	Flush() error
	Close() error
}

// Cache fans out changed values to every publisher.
type Cache struct {
	pubs []Publisher
	last map[string]string
}

func NewCache(pubs ...Publisher) *Cache {
	return &Cache{
		pubs: pubs,
		last: make(map[string]string),
	}
}

// Format renders v the way it is published: floats with 3 decimals,
// everything else with fmt.Sprint.
func Format(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', 3, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', 3, 32)
	}
	return fmt.Sprint(v)
}

// Print publishes key if its formatted value differs from the last one
// published, returning true if it did.
func (c *Cache) Print(key string, v interface{}) bool {
	s := Format(v)
	if last, found := c.last[key]; found && last == s {
		return false
	}
	c.last[key] = s
	for _, pub := range c.pubs {
		pub.Set(key, s)
	}
	return true
}

// Delete removes key from every publisher if it was published.
func (c *Cache) Delete(key string) bool {
	if _, found := c.last[key]; !found {
		return false
	}
	delete(c.last, key)
	for _, pub := range c.pubs {
		pub.Delete(key)
	}
	return true
}

// Last returns the last published value of key.
func (c *Cache) Last(key string) (string, bool) {
	s, found := c.last[key]
	return s, found
}

// Keys returns the published keys in order.
func (c *Cache) Keys() []string {
	keys := make([]string, 0, len(c.last))
	for k := range c.last {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flush every publisher, returning the first error.
func (c *Cache) Flush() (err error) {
	for _, pub := range c.pubs {
		if t := pub.Flush(); t != nil && err == nil {
			err = t
		}
	}
	return
}

func (c *Cache) Close() (err error) {
	for _, pub := range c.pubs {
		if t := pub.Close(); t != nil && err == nil {
			err = t
		}
	}
	return
}
