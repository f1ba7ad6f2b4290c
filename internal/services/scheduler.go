package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/konverge/devhub/internal/database"
	"github.com/sirupsen/logrus"
)

// DefaultSaveDelay — период тишины перед записью в базу
const DefaultSaveDelay = 1500 * time.Millisecond

type pendingSave struct {
	timer   *time.Timer
	content string
}

// SaveScheduler схлопывает поток правок одного файла в одну запись за период
// тишины. На каждый ключ room:file живет не больше одного таймера; новая
// правка снимает старый таймер и ставит свежий с более новым содержимым.
// Этот путь сознательно не создает снапшотов: историю на каждое нажатие
// клавиши никто не хочет, снапшоты делают явный update и rollback.
type SaveScheduler struct {
	db    *database.Database
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pendingSave
}

func NewSaveScheduler(db *database.Database, delay time.Duration) *SaveScheduler {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	return &SaveScheduler{
		db:      db,
		delay:   delay,
		pending: make(map[string]*pendingSave),
	}
}

// Schedule ставит (или заменяет) отложенную запись для файла.
// Предыдущее содержимое той же пачки отбрасывается — в базу попадает
// только последнее.
func (s *SaveScheduler) Schedule(roomID, fileID uuid.UUID, content string) {
	key := roomID.String() + ":" + fileID.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
	}

	p := &pendingSave{content: content}
	p.timer = time.AfterFunc(s.delay, func() {
		s.flush(key, roomID, fileID, p)
	})
	s.pending[key] = p
}

func (s *SaveScheduler) flush(key string, roomID, fileID uuid.UUID, p *pendingSave) {
	s.mu.Lock()
	// Пока таймер дожидался очереди, его могли заменить более новой правкой
	if current, ok := s.pending[key]; !ok || current != p {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.mu.Unlock()

	if _, err := s.db.SetFileContent(roomID, fileID, p.content); err != nil {
		// Клиенты уже получили содержимое через broadcast; следующая удачная
		// запись сохранит актуальное состояние. Повторов не делаем.
		logrus.Errorf("Debounced save failed for %s: %v", key, err)
		return
	}

	logrus.Debugf("Debounced save flushed for %s (%d bytes)", key, len(p.content))
}

// Stop снимает все отложенные таймеры, ничего не записывая
func (s *SaveScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, key)
	}
}

// PendingCount — количество взведенных таймеров
func (s *SaveScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
