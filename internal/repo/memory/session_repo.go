package memory

import (
	"sync"
	"time"
)

// Session is the registry record of one voice session. Records are
// immutable once stored; Update swaps in a modified copy.
type Session struct {
	ID        string
	CreatedAt time.Time
	Locale    string
	Music     bool
	Connected bool

	Mode       string
	Emotion    string
	RetryCount int
	Turns      int64
	Fallbacks  int64
	Commands   int64
}

type SessionRepo struct {
	m sync.Map
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{}
}

func (r *SessionRepo) Save(s *Session) {
	r.m.Store(s.ID, s)
}

func (r *SessionRepo) Get(id string) (*Session, bool) {
	v, ok := r.m.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

func (r *SessionRepo) Delete(id string) bool {
	_, ok := r.m.LoadAndDelete(id)
	return ok
}

// Update applies fn to a copy of the record and stores it. It reports false
// when id is unknown.
func (r *SessionRepo) Update(id string, fn func(*Session)) bool {
	for {
		v, ok := r.m.Load(id)
		if !ok {
			return false
		}
		cur := v.(*Session)
		next := *cur
		fn(&next)
		if r.m.CompareAndSwap(id, cur, &next) {
			return true
		}
	}
}

func (r *SessionRepo) Count() int {
	n := 0
	r.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
