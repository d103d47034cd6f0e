package app

import (
	"errors"
	"testing"
)

type recordingCloser struct {
	name  string
	order *[]string
	err   error
}

func (c *recordingCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func TestClosers_CloseAllNewestFirst(t *testing.T) {
	t.Parallel()
	var order []string
	failed := errors.New("download client busy")
	cs := closers{
		&recordingCloser{name: "backend", order: &order},
		&recordingCloser{name: "audit", order: &order},
		&recordingCloser{name: "downloader", order: &order, err: failed},
	}

	err := cs.closeAll()
	if !errors.Is(err, failed) {
		t.Errorf("expected the close error to be reported, got %v", err)
	}
	want := []string{"downloader", "audit", "backend"}
	if len(order) != len(want) {
		t.Fatalf("expected %v closed, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("close %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestClosers_Empty(t *testing.T) {
	t.Parallel()
	if err := closers(nil).closeAll(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
