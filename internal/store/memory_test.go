package store

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/robalobadob/crossword-battle/internal/game"
)

func newSession(id string) *game.Session {
	return game.New(game.Config{ID: id, Mode: game.ModeQuickPlay}, game.Deps{})
}

func TestSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	s := newSession("abc")
	if err := st.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := st.Get(ctx, "abc")
	if err != nil || got != s {
		t.Fatalf("get = %v, %v", got, err)
	}
	if _, err := st.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, ErrNotFound)
	}
	if err := st.Delete(ctx, "abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.Get(ctx, "abc"); !errors.Is(err, ErrNotFound) {
		t.Fatal("expected session to be gone")
	}
	if err := st.Delete(ctx, "abc"); err != nil {
		t.Fatalf("deleting twice: %v", err)
	}
}

func TestGeneratedIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	for range 200 {
		if err := st.Save(ctx, newSession("")); err != nil {
			t.Fatal(err)
		}
	}
	if st.Len() != 200 {
		t.Fatalf("len = %d, want 200", st.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "s" + strconv.Itoa(i)
			_ = st.Save(ctx, newSession(id))
			if _, err := st.Get(ctx, id); err != nil {
				t.Errorf("get %s: %v", id, err)
			}
			if i%2 == 0 {
				_ = st.Delete(ctx, id)
			}
			st.Len()
		}(i)
	}
	wg.Wait()
	if st.Len() != 50 {
		t.Fatalf("len = %d, want 50", st.Len())
	}
}
