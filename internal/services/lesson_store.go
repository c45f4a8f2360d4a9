package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

type lessonFile struct {
	Lessons     map[string]json.RawMessage `json:"lessons"`
	GeneratedAt *string                    `json:"generatedAt"`
}

// LessonStore persists generated lessons in one JSON file. Entries never
// expire. Lessons are kept as raw JSON so reads return exactly what was saved.
type LessonStore struct {
	mu   sync.Mutex
	path string
}

func NewLessonStore(path string) *LessonStore {
	return &LessonStore{path: path}
}

func (s *LessonStore) Path() string {
	return s.path
}

// Load returns the stored lesson for id in compact form.
func (s *LessonStore) Load(id int) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.readLocked()
	raw, ok := f.Lessons[strconv.Itoa(id)]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, false
	}
	return json.RawMessage(buf.Bytes()), true
}

// Cached reports which lesson ids have an entry.
func (s *LessonStore) Cached() map[int]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]bool)
	for k := range s.readLocked().Lessons {
		if id, err := strconv.Atoi(k); err == nil {
			out[id] = true
		}
	}
	return out
}

// GeneratedAt is the time of the last write, or "" if the file is empty.
func (s *LessonStore) GeneratedAt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.readLocked()
	if f.GeneratedAt == nil {
		return ""
	}
	return *f.GeneratedAt
}

// Save stores raw under id and rewrites the file atomically.
func (s *LessonStore) Save(id int, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.readLocked()
	f.Lessons[strconv.Itoa(id)] = raw
	ts := time.Now().UTC().Format(time.RFC3339)
	f.GeneratedAt = &ts

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode lesson cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create lesson cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".lessons-*.json")
	if err != nil {
		return fmt.Errorf("create temp lesson cache: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write lesson cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close lesson cache: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace lesson cache: %w", err)
	}
	return nil
}

// readLocked tolerates a missing or corrupt file by starting empty.
func (s *LessonStore) readLocked() lessonFile {
	f := lessonFile{Lessons: map[string]json.RawMessage{}}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("lesson cache read failed: %v", err)
		}
		return f
	}
	if err := json.Unmarshal(data, &f); err != nil {
		log.Printf("lesson cache corrupt, starting empty: %v", err)
		return lessonFile{Lessons: map[string]json.RawMessage{}}
	}
	if f.Lessons == nil {
		f.Lessons = map[string]json.RawMessage{}
	}
	return f
}
