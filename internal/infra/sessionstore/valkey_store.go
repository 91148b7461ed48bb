package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/temppredict/internal/domain/session"
)

// ValkeyStore persists sessions in a Valkey-compatible database with a TTL per key.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "temppredict:session"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) Save(ctx context.Context, contextID string, sess session.Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.key(contextID)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) Load(ctx context.Context, contextID string) (session.Session, bool, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(contextID)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return session.Session{}, false, nil
		}
		return session.Session{}, false, err
	}
	var sess session.Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return session.Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return sess, true, nil
}

func (s *ValkeyStore) Delete(ctx context.Context, contextID string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.key(contextID)).Build()).Error()
}

func (s *ValkeyStore) key(contextID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, contextID)
}

var _ session.Store = (*ValkeyStore)(nil)
