package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"coincoach/backend-go/internal/models"
)

// LessonService serves lesson content from the file store, generating and
// persisting it on a miss.
type LessonService struct {
	ai    TextGenerator
	store *LessonStore
	delay time.Duration

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewLessonService(ai TextGenerator, store *LessonStore, delay time.Duration) *LessonService {
	return &LessonService{
		ai:    ai,
		store: store,
		delay: delay,
		locks: make(map[int]*sync.Mutex),
	}
}

func (s *LessonService) lockFor(id int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Get returns lesson id as JSON. Cached lessons are returned unchanged; a
// miss generates the lesson once even under concurrent callers.
func (s *LessonService) Get(ctx context.Context, id int) (json.RawMessage, error) {
	if _, ok := LookupLesson(id); !ok {
		return nil, ErrLessonNotFound
	}
	if raw, ok := s.store.Load(id); ok {
		return raw, nil
	}

	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	if raw, ok := s.store.Load(id); ok {
		return raw, nil
	}
	lesson, err := s.generate(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.persist(lesson)
}

func (s *LessonService) generate(ctx context.Context, id int) (models.LessonContent, error) {
	entry, ok := LookupLesson(id)
	if !ok {
		return models.LessonContent{}, ErrLessonNotFound
	}
	if s.ai == nil || !s.ai.Configured() {
		return models.LessonContent{}, ErrAIUnconfigured
	}
	text, err := s.ai.Generate(ctx, UserPrompt(entry.Prompt, GenerationConfig{}))
	if err != nil {
		return models.LessonContent{}, err
	}

	res := ParseLesson(text)
	if !res.OK() {
		log.Printf("lesson %d: model output not json, using text layout: %s", id, res.Reason)
	}
	lesson := res.Value
	lesson.ID = id
	lesson.YoutubeVideos = append([]string{}, entry.Videos...)
	lesson.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	return lesson, nil
}

func (s *LessonService) persist(lesson models.LessonContent) (json.RawMessage, error) {
	raw, err := json.Marshal(lesson)
	if err != nil {
		return nil, fmt.Errorf("encode lesson %d: %w", lesson.ID, err)
	}
	if err := s.store.Save(lesson.ID, raw); err != nil {
		// The lesson is still served; the next request regenerates it.
		log.Printf("lesson %d: cache write failed: %v", lesson.ID, err)
	}
	return raw, nil
}

// GenerateAll walks the catalog in order. Without force, cached lessons are
// reported as-is. Generation failures become error entries.
func (s *LessonService) GenerateAll(ctx context.Context, force bool) models.LessonBatch {
	batch := models.LessonBatch{Success: true, Lessons: []models.LessonContent{}}
	generated := 0
	for _, entry := range LessonCatalog {
		if !force {
			if raw, ok := s.store.Load(entry.ID); ok {
				var cached models.LessonContent
				if err := json.Unmarshal(raw, &cached); err == nil {
					batch.Lessons = append(batch.Lessons, cached)
					continue
				}
			}
		}

		if generated > 0 && s.delay > 0 {
			select {
			case <-ctx.Done():
				batch.Lessons = append(batch.Lessons, lessonError(entry, ctx.Err()))
				continue
			case <-time.After(s.delay):
			}
		}
		generated++

		l := s.lockFor(entry.ID)
		l.Lock()
		lesson, err := s.generate(ctx, entry.ID)
		if err == nil {
			_, err = s.persist(lesson)
		}
		l.Unlock()
		if err != nil {
			log.Printf("lesson %d: generation failed: %v", entry.ID, err)
			batch.Lessons = append(batch.Lessons, lessonError(entry, err))
			continue
		}
		batch.Lessons = append(batch.Lessons, lesson)
	}
	batch.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	return batch
}

func lessonError(entry Lesson, err error) models.LessonContent {
	return models.LessonContent{
		ID:            entry.ID,
		Error:         fmt.Sprintf("Failed to generate lesson %d: %v", entry.ID, err),
		Sections:      []models.LessonSection{},
		KeyPoints:     []string{},
		YoutubeVideos: append([]string{}, entry.Videos...),
	}
}

// List reports the catalog with cache status.
func (s *LessonService) List() []models.LessonSummary {
	cached := s.store.Cached()
	out := make([]models.LessonSummary, 0, len(LessonCatalog))
	for _, entry := range LessonCatalog {
		out = append(out, models.LessonSummary{ID: entry.ID, Title: entry.Title, Cached: cached[entry.ID]})
	}
	return out
}

type lessonPayload struct {
	Content   string          `json:"content"`
	Sections  json.RawMessage `json:"sections"`
	KeyPoints json.RawMessage `json:"keyPoints"`
}

// ParseLesson decodes model output into a lesson. Text that holds no JSON
// object is laid out as an introduction plus key concepts.
func ParseLesson(text string) ParseResult[models.LessonContent] {
	var p lessonPayload
	if err := json.Unmarshal([]byte(ExtractObject(text)), &p); err != nil {
		return Degraded(lessonFromText(text), err.Error())
	}
	lesson := models.LessonContent{Content: p.Content}
	if err := json.Unmarshal(p.Sections, &lesson.Sections); err != nil || lesson.Sections == nil {
		lesson.Sections = []models.LessonSection{}
	}
	if err := json.Unmarshal(p.KeyPoints, &lesson.KeyPoints); err != nil || lesson.KeyPoints == nil {
		lesson.KeyPoints = []string{}
	}
	return Parsed(lesson)
}

func lessonFromText(text string) models.LessonContent {
	paragraphs := strings.Split(text, "\n\n")
	intro := paragraphs[0]
	if intro == "" {
		intro = text
	}
	rest := strings.Join(paragraphs[1:], "\n\n")
	if rest == "" {
		rest = text
	}

	points := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "•") {
			continue
		}
		line = strings.TrimPrefix(strings.TrimPrefix(line, "-"), "•")
		points = append(points, strings.TrimSpace(line))
		if len(points) == 5 {
			break
		}
	}

	return models.LessonContent{
		Content: intro,
		Sections: []models.LessonSection{
			{Title: "Introduction", Content: intro},
			{Title: "Key Concepts", Content: rest},
		},
		KeyPoints: points,
	}
}
