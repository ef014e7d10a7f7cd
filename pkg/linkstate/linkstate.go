// Package linkstate publishes per-link framer statistics and the
// reliable engine's counters to Redis, and watches a Redis list for
// outbound submit commands, following the teacher's redis package
// (HSet+Publish, BRPop command-queue) patterns.
package linkstate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vectorlink/m1proto/pkg/link"
)

const keyPrefix = "m1:link:"

// Client wraps a go-redis client with the narrow set of operations the
// M1 gateway needs: publishing per-link stats and draining a command
// queue.
type Client struct {
	rdb *redis.Client
	ctx context.Context
}

// Connect dials addr and verifies connectivity with PING.
func Connect(addr string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("linkstate: connect to redis at %s: %v", addr, err)
	}
	return &Client{rdb: rdb, ctx: ctx}, nil
}

// PublishStats writes linkName's framer counters into a Redis hash and
// publishes a summary on the link's pub/sub channel.
func (c *Client) PublishStats(linkName string, s link.Stats) error {
	key := keyPrefix + linkName

	pipe := c.rdb.Pipeline()
	pipe.HSet(c.ctx, key,
		"total_bytes", s.TotalBytes,
		"not_frame_bytes", s.NotFrameBytes,
		"sof_ok", s.SofOk,
		"crc8_ok", s.Crc8Ok,
		"crc8_err", s.Crc8Err,
		"crc16_ok", s.Crc16Ok,
		"crc16_err", s.Crc16Err,
		"len_overflow", s.LenOverflow,
	)
	pipe.Publish(c.ctx, key, fmt.Sprintf("crc16_ok:%d crc16_err:%d", s.Crc16Ok, s.Crc16Err))
	_, err := pipe.Exec(c.ctx)
	return err
}

// PublishReliableCounters writes the reliable engine's outstanding and
// stray-ack counters into a well-known hash.
func (c *Client) PublishReliableCounters(waitAckLen int, strayAcks uint64) error {
	return c.rdb.HSet(c.ctx, keyPrefix+"reliable", "wait_ack_len", waitAckLen, "stray_acks", strayAcks).Err()
}

// WatchCommands blocks on BRPOP against queueKey, delivering each
// popped command body to out, until stopCh is closed. Errors other
// than a timeout are logged and retried after a short delay, matching
// the teacher's WatchRedisCommands loop.
func (c *Client) WatchCommands(queueKey string, out chan<- string, stopCh <-chan struct{}) {
	log.Printf("linkstate: watching redis list %s", queueKey)
	for {
		select {
		case <-stopCh:
			log.Printf("linkstate: stopping command watcher on %s", queueKey)
			return
		default:
		}

		result, err := c.rdb.BRPop(c.ctx, 1*time.Second, queueKey).Result()
		if err != nil {
			if err != redis.Nil {
				log.Printf("linkstate: BRPOP on %s: %v", queueKey, err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) != 2 {
			log.Printf("linkstate: unexpected BRPOP result on %s: %v", queueKey, result)
			continue
		}
		out <- result[1]
	}
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
