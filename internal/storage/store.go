package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/group-summary-bot/internal/models"
	"github.com/rs/zerolog"
)

// Store persists chat messages as append-only JSON partitions, one file
// per chat per local calendar date: <dataDir>/<chat_id>/<YYYY-MM-DD>.json.
// Partitions are created lazily on first append and never rewritten
// retroactively; retention is an external concern.
type Store struct {
	dataDir  string
	location *time.Location
	logger   zerolog.Logger

	mu        sync.Mutex
	chatLocks map[int64]*sync.Mutex
}

// NewStore creates a store rooted at dataDir. Partition dates are
// derived from message timestamps converted to loc.
func NewStore(dataDir string, loc *time.Location, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	return &Store{
		dataDir:   dataDir,
		location:  loc,
		logger:    logger.With().Str("component", "storage").Logger(),
		chatLocks: make(map[int64]*sync.Mutex),
	}, nil
}

// Location returns the timezone used for partitioning.
func (s *Store) Location() *time.Location {
	return s.location
}

// chatLock returns the per-chat mutex, creating it on first use.
// Appends for the same chat are serialized; different chats never block
// each other.
func (s *Store) chatLock(chatID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.chatLocks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		s.chatLocks[chatID] = lock
	}
	return lock
}

func (s *Store) chatDir(chatID int64) string {
	return filepath.Join(s.dataDir, strconv.FormatInt(chatID, 10))
}

func (s *Store) partitionPath(chatID int64, date string) string {
	return filepath.Join(s.chatDir(chatID), date+".json")
}

// Append writes the message to the partition for its local date.
// Arrival order within a chat is preserved; a message whose ID is
// already present in the partition is skipped.
func (s *Store) Append(ctx context.Context, msg models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.chatLock(msg.ChatID)
	lock.Lock()
	defer lock.Unlock()

	date := msg.Timestamp.In(s.location).Format(models.DateLayout)
	path := s.partitionPath(msg.ChatID, date)

	messages, err := s.readPartition(path)
	if err != nil {
		// Never clobber an unreadable partition with a fresh one.
		return &models.StorageError{Op: "append", Err: err}
	}

	for _, existing := range messages {
		if existing.MessageID == msg.MessageID {
			s.logger.Debug().
				Int64("chat_id", msg.ChatID).
				Int64("message_id", msg.MessageID).
				Msg("Message already exists, skipping")
			return nil
		}
	}

	messages = append(messages, msg)

	if err := s.writePartition(path, messages); err != nil {
		return &models.StorageError{Op: "append", Err: err}
	}

	s.logger.Debug().
		Int64("chat_id", msg.ChatID).
		Int64("message_id", msg.MessageID).
		Str("date", date).
		Msg("Message saved")

	return nil
}

// LoadPartition returns the ordered messages for one (chat, date)
// partition. A missing partition is an empty slice, not an error.
func (s *Store) LoadPartition(ctx context.Context, chatID int64, date string) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	messages, err := s.readPartition(s.partitionPath(chatID, date))
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Str("date", date).
			Msg("Failed to load partition")
		return nil, &models.StorageError{Op: "load_partition", Err: err}
	}

	return messages, nil
}

// DailyStats scans one partition and returns message count, distinct
// sender count and the per-sender ranking for that date.
func (s *Store) DailyStats(ctx context.Context, chatID int64, date string) (models.DailyStats, error) {
	messages, err := s.LoadPartition(ctx, chatID, date)
	if err != nil {
		return models.DailyStats{}, err
	}

	stats := models.DailyStats{
		Date:         date,
		MessageCount: len(messages),
	}

	counts := make(map[string]int)
	for _, msg := range messages {
		sender := msg.Sender
		if sender == "" {
			sender = "Unknown"
		}
		counts[sender]++
	}
	stats.SenderCount = len(counts)

	for sender, count := range counts {
		stats.TopSenders = append(stats.TopSenders, models.SenderCount{Sender: sender, Count: count})
	}
	sort.Slice(stats.TopSenders, func(i, j int) bool {
		if stats.TopSenders[i].Count != stats.TopSenders[j].Count {
			return stats.TopSenders[i].Count > stats.TopSenders[j].Count
		}
		return stats.TopSenders[i].Sender < stats.TopSenders[j].Sender
	})

	return stats, nil
}

// ListConversations returns every chat ID that has a store directory.
func (s *Store) ListConversations() ([]int64, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, &models.StorageError{Op: "list_conversations", Err: err}
	}

	var chatIDs []int64
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		// Chat IDs may be negative for group chats.
		chatID, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		chatIDs = append(chatIDs, chatID)
	}

	sort.Slice(chatIDs, func(i, j int) bool { return chatIDs[i] < chatIDs[j] })
	return chatIDs, nil
}

// readPartition loads a partition file, tolerating absence.
func (s *Store) readPartition(path string) ([]models.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read partition: %w", err)
	}

	var messages []models.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse partition: %w", err)
	}

	return messages, nil
}

// writePartition replaces a partition atomically so a concurrent reader
// sees either the previous or the new content, never a partial write.
func (s *Store) writePartition(path string, messages []models.Message) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create chat dir: %w", err)
	}

	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal partition: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".partition-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write partition: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close partition: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace partition: %w", err)
	}

	return nil
}
