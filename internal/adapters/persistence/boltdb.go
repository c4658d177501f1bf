package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/portfolio-swap/internal/domain"
)

const (
	AttemptsBucket = "submission_attempts"

	DefaultDBPath = "./data/submissions.db"
)

// SubmissionStore keeps every submission attempt keyed "<signature>/<attempt>".
type SubmissionStore struct {
	db     *boltdb.BoltDatabase
	dbPath string
}

func NewSubmissionStore(dbPath string) (*SubmissionStore, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	log.Info().Str("path", dbPath).Msg("[SubmissionStore] opened database")

	return &SubmissionStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func (s *SubmissionStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func attemptKey(signature string, attempt int) []byte {
	return []byte(fmt.Sprintf("%s/%d", signature, attempt))
}

// SaveAttempt upserts one attempt; writing the same attempt twice keeps the latest status.
func (s *SubmissionStore) SaveAttempt(attempt domain.SubmissionAttempt) error {
	data, err := sonic.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt: %w", err)
	}
	return s.db.Set(AttemptsBucket, attemptKey(attempt.Signature, attempt.AttemptNumber), data)
}

// SaveAttempts writes several attempts in one batch.
func (s *SubmissionStore) SaveAttempts(attempts []domain.SubmissionAttempt) error {
	if len(attempts) == 0 {
		return nil
	}

	batch := s.db.NewBatch()
	for _, attempt := range attempts {
		data, err := sonic.Marshal(attempt)
		if err != nil {
			return fmt.Errorf("failed to marshal attempt %s/%d: %w", attempt.Signature, attempt.AttemptNumber, err)
		}

		value := data
		op := &boltdb.WriteOperation{
			Bucket: []byte(AttemptsBucket),
			Key:    attemptKey(attempt.Signature, attempt.AttemptNumber),
			Value:  &value,
			Op:     boltdb.OpSet,
		}
		if err := batch.Add(op); err != nil {
			return fmt.Errorf("failed to add attempt %s/%d to batch: %w", attempt.Signature, attempt.AttemptNumber, err)
		}
	}

	if err := batch.Execute(); err != nil {
		log.Error().Err(err).Int("count", len(attempts)).Msg("[SubmissionStore] failed to execute batch")
		return err
	}
	return nil
}

// Attempts returns the recorded attempts for signature ordered by attempt number.
func (s *SubmissionStore) Attempts(signature string) ([]domain.SubmissionAttempt, error) {
	data, err := s.db.List(AttemptsBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	prefix := signature + "/"
	attempts := make([]domain.SubmissionAttempt, 0)
	for key, value := range data {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		var attempt domain.SubmissionAttempt
		if err := sonic.Unmarshal(value, &attempt); err != nil {
			log.Error().Str("key", key).Err(err).Msg("[SubmissionStore] failed to unmarshal attempt, skipping")
			continue
		}
		attempts = append(attempts, attempt)
	}

	slices.SortFunc(attempts, func(a, b domain.SubmissionAttempt) int {
		return a.AttemptNumber - b.AttemptNumber
	})
	return attempts, nil
}
