package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/reel/pkg/adapters/file"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSlideStoreContract(t, func(t *testing.T, deck *domain.Deck) ports.SlideStore {
		store := file.New(filepath.Join(t.TempDir(), "deck.yaml"))
		require.NoError(t, store.Save(context.Background(), deck))
		return store
	})
}

func TestFileStore_MissingDeck(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "none.yaml"))
	_, err := store.LoadDeck(context.Background())
	assert.ErrorIs(t, err, domain.ErrDeckNotFound)
}

func TestFileStore_ParsesHandWrittenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
folders:
  - id: basics
    name: Basics
    order: 1
slides:
  - id: welcome
    order: 1
    folder: basics
    connections:
      default_next: quiz
  - id: quiz
    order: 2
    elements:
      - id: q1
        kind: choice-set
        locked: true
    connections:
      per_element:
        "q1#right": done
  - id: done
    order: 3
`), 0o644))

	deck, err := file.New(path).LoadDeck(context.Background())
	require.NoError(t, err)
	require.Len(t, deck.Slides, 3)
	assert.Equal(t, "basics", deck.Slides[0].FolderID)
	assert.Equal(t, "quiz", deck.Slides[0].Connections.DefaultNext)
	assert.Equal(t, domain.KindChoiceSet, deck.Slides[1].Elements[0].Kind)
	assert.Equal(t, "done", deck.Slides[1].Connections.PerElement["q1#right"])
	assert.Equal(t, "Basics", deck.Folders[0].Name)
}

func TestFileStore_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("slides: [::"), 0o644))
	_, err := file.New(path).LoadDeck(context.Background())
	assert.ErrorContains(t, err, "failed to parse deck file")
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store := file.New(filepath.Join(dir, "deck.yaml"))
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, ports.ContractDeck()))
	_, err := store.SetOrder(ctx, "a", 9, 0)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.yaml")
	store := file.New(path)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, store.Save(ctx, ports.ContractDeck()))

	ch, err := store.Watch(ctx)
	require.NoError(t, err)

	_, err = store.SetConnections(ctx, "b", domain.Connections{DefaultNext: "a"}, 0)
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, filepath.Clean(path), got)
	case <-time.After(3 * time.Second):
		t.Fatal("no change signal")
	}
}
