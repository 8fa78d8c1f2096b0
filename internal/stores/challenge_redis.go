package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeRecordVersion1 = 1

	flagSetup byte = 1 << 0
)

// RedisChallengeStore keeps challenges in Redis under "<prefix>:<id>".
type RedisChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisChallengeStore(redisClient redis.UniversalClient, prefix string, now func() time.Time) *RedisChallengeStore {
	if prefix == "" {
		prefix = "mfac"
	}
	if now == nil {
		now = time.Now
	}
	return &RedisChallengeStore{
		redis:  redisClient,
		prefix: prefix,
		now:    now,
	}
}

func (s *RedisChallengeStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *RedisChallengeStore) Save(ctx context.Context, id string, c *Challenge, ttl time.Duration) error {
	rec := *c
	if rec.ExpiresAt == 0 {
		rec.ExpiresAt = s.now().Add(ttl).UnixMilli()
	}
	encoded, err := encodeChallenge(&rec)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(id), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return nil
}

func (s *RedisChallengeStore) Get(ctx context.Context, id string) (*Challenge, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}

	c, err := decodeChallenge(data)
	if err != nil {
		return nil, err
	}
	if c.expired(s.now()) {
		_, _ = s.redis.Del(ctx, s.key(id)).Result()
		return nil, ErrChallengeExpired
	}
	return c, nil
}

func (s *RedisChallengeStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return n > 0, nil
}

func (s *RedisChallengeStore) RecordFailure(ctx context.Context, id string, maxAttempts int) (bool, error) {
	const maxRetries = 4
	key := s.key(id)

	for i := 0; i < maxRetries; i++ {
		var exceeded bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			c, err := decodeChallenge(data)
			if err != nil {
				return err
			}

			now := s.now()
			ttl := time.UnixMilli(c.ExpiresAt).Sub(now)
			c.Attempts++
			if int(c.Attempts) >= maxAttempts || ttl <= 0 {
				exceeded = ttl > 0
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				if ttl <= 0 {
					return ErrChallengeExpired
				}
				return nil
			}

			updated, err := encodeChallenge(c)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, ErrChallengeNotFound
			}
			if errors.Is(err, ErrChallengeExpired) {
				return false, err
			}
			return false, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
		}
		return exceeded, nil
	}

	return false, ErrChallengeBackend
}

func encodeChallenge(c *Challenge) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersion1)

	var flags byte
	if c.Setup {
		flags |= flagSetup
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, c.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, c.ExpiresAt); err != nil {
		return nil, err
	}

	for _, s := range []string{c.Username, c.DeviceID} {
		if len(s) > 65535 {
			return nil, errors.New("mfa challenge field length exceeded")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(s))); err != nil {
			return nil, err
		}
		buf.WriteString(s)
	}

	return buf.Bytes(), nil
}

func decodeChallenge(data []byte) (*Challenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersion1 {
		return nil, errors.New("invalid mfa challenge version")
	}
	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	c := &Challenge{Setup: flags&flagSetup != 0}
	if err := binary.Read(reader, binary.BigEndian, &c.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &c.ExpiresAt); err != nil {
		return nil, err
	}

	if c.Username, err = readString(reader); err != nil {
		return nil, err
	}
	if c.DeviceID, err = readString(reader); err != nil {
		return nil, err
	}
	return c, nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
