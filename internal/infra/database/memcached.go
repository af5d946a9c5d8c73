package database

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

func NewMemcached(server string) (*memcache.Client, error) {
	client := memcache.New(server)
	client.Timeout = 500 * time.Millisecond
	if err := client.Ping(); err != nil {
		return nil, err
	}
	return client, nil
}
