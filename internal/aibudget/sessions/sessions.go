// Управление сессиями пользователей с использованием BoltDB.
//
// Основные возможности:
//   - Блокировка подписей токенов на время их жизни (blacklist при выходе).
//   - Автоматическая очистка устаревших записей.
package sessions

import (
	"encoding/binary"
	"log/slog"
	"os"
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/config"
	"github.com/boltdb/bolt"
)

type SessionsManager struct {
	db  *bolt.DB
	ttl time.Duration
}

const sessionsBucketName = "sessions"

func NewSessionsManager(cfg *config.Config, sessionTTL time.Duration) *SessionsManager {
	if cfg.SessionsDBPath == "" {
		cfg.SessionsDBPath = "sessions.db"
	}

	db, err := bolt.Open(cfg.SessionsDBPath, 0644, nil)
	if err != nil {
		slog.Error("Open sessions db", "err", err)
		os.Exit(1)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionsBucketName))
		return err
	}); err != nil {
		slog.Error("Create sessions bucket", "err", err)
		os.Exit(1)
	}

	sm := &SessionsManager{db, sessionTTL}

	go sm.cleanLoop()

	return sm
}

func (sm *SessionsManager) BlacklistToken(signature []byte) error {
	return sm.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(sessionsBucketName))

		tm := make([]byte, 8)
		binary.LittleEndian.PutUint64(tm, uint64(time.Now().Add(sm.ttl).Unix()))

		return b.Put(signature, tm)
	})
}

func (sm *SessionsManager) IsTokenBlacklisted(signature []byte) (bool, error) {
	var blacklisted bool
	err := sm.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(sessionsBucketName))

		timeRaw := b.Get(signature)
		if timeRaw == nil {
			return nil
		}

		until := time.Unix(int64(binary.LittleEndian.Uint64(timeRaw)), 0)
		blacklisted = time.Now().Before(until)
		return nil
	})
	return blacklisted, err
}

// Удаляет записи с истекшим сроком раз в час.
func (sm *SessionsManager) cleanLoop() {
	for {
		time.Sleep(time.Hour)
		if err := sm.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket([]byte(sessionsBucketName))
			c := b.Cursor()
			now := time.Now()
			for k, v := c.First(); k != nil; k, v = c.Next() {
				until := time.Unix(int64(binary.LittleEndian.Uint64(v)), 0)
				if now.After(until) {
					if err := b.Delete(k); err != nil {
						return err
					}
				}
			}
			return nil
		}); err != nil {
			slog.Error("Clean sessions", "err", err)
		}
	}
}
