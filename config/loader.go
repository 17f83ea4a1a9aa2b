// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/platinasystems/log"
	"github.com/platinasystems/pmbus/publisher"
)

const DefaultFile = "/etc/goes/psu.yaml"

// Rapid successive writes within debounce are reported once.
const debounce = 2 * time.Second

type Loader struct {
	v *viper.Viper

	mutex  sync.Mutex
	last   time.Time
	now    func() time.Time
	notify func(*Config)
}

func newLoader() *Loader {
	v := viper.New()
	v.SetDefault("interval", "1s")
	v.SetDefault("redis.hash", publisher.DefaultHash)
	v.SetDefault("mqtt.prefix", publisher.DefaultPrefix)
	v.SetDefault("mqtt.encoding", publisher.EncodingJSON)
	return &Loader{v: v, now: time.Now}
}

// New returns a loader of the named YAML file.
func New(path string) *Loader {
	l := newLoader()
	l.v.SetConfigFile(path)
	l.v.SetConfigType("yaml")
	return l
}

// Load reads and decodes the file.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		return nil, err
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	cfg := new(Config)
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch calls fn with each valid revision of the file. Invalid revisions
// are logged and skipped.
func (l *Loader) Watch(fn func(*Config)) {
	l.mutex.Lock()
	l.notify = fn
	l.mutex.Unlock()
	l.v.OnConfigChange(l.changed)
	l.v.WatchConfig()
}

func (l *Loader) changed(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	l.mutex.Lock()
	now := l.now()
	if !l.last.IsZero() && now.Sub(l.last) < debounce {
		l.mutex.Unlock()
		return
	}
	l.last = now
	fn := l.notify
	l.mutex.Unlock()

	cfg, err := l.decode()
	if err != nil {
		log.Print("warning: ", e.Name, ": ", err)
		return
	}
	log.Print("notice: ", e.Name, ": reloaded")
	if fn != nil {
		fn(cfg)
	}
}
