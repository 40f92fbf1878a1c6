package imagelabeler

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-labeler/internal/config"
	"github.com/menta2k/image-labeler/pkg/assist"
	"github.com/menta2k/image-labeler/pkg/editor"
	"github.com/menta2k/image-labeler/pkg/render"
	"github.com/menta2k/image-labeler/pkg/types"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 && y > height/3 && y < 2*height/3 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{64, 64, 64, 255})
			}
		}
	}
	return img
}

type fakeVision struct {
	answer *types.Suggestion
}

func (f *fakeVision) Locate(ctx context.Context, model, prompt, imgB64 string) (*types.Suggestion, error) {
	return f.answer, nil
}

func newLabeler(t *testing.T) (*Labeler, string) {
	t.Helper()
	root := t.TempDir()
	birds := filepath.Join(root, "birds")
	require.NoError(t, os.MkdirAll(birds, 0755))
	require.NoError(t, imaging.Save(createTestImage(1000, 500), filepath.Join(birds, "a.png")))
	require.NoError(t, imaging.Save(createTestImage(200, 200), filepath.Join(birds, "b.png")))
	require.NoError(t, os.WriteFile(filepath.Join(birds, "a.txt"), []byte("0 0.5 0.5 0.2 0.4\n"), 0644))

	cfg := config.Default()
	cfg.Dataset.Root = root
	cfg.Display = config.DisplayConfig{Width: 500, Height: 500}

	l, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, l.SelectCollection("birds"))
	return l, root
}

func TestNew(t *testing.T) {
	l, _ := newLabeler(t)

	names, err := l.Collections()
	require.NoError(t, err)
	assert.Equal(t, []string{"birds"}, names)

	assert.Equal(t, Position{Collection: "birds", Image: "a.png", Index: 0, Count: 2}, l.Position())
	assert.Equal(t, 0.5, l.ScaleFactor())
	original, display := l.Sizes()
	assert.Equal(t, types.Size{W: 1000, H: 500}, original)
	assert.Equal(t, types.Size{W: 500, H: 250}, display)
	assert.Equal(t, []types.Box{{Rect: types.Rect{X: 200, Y: 75, W: 100, H: 100}, Label: 0}}, l.Boxes())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Display.Width = 0
	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestDrawEditSaveCycle(t *testing.T) {
	l, root := newLabeler(t)

	l.BeginDraw(types.Pt(10, 10))
	l.UpdateDraw(types.Pt(30, 30))
	assert.True(t, l.EndDraw(types.Pt(60, 50), editor.FixedLabel(2)))
	assert.Len(t, l.Boxes(), 2)

	idx, ok := l.HitTest(types.Pt(20, 20))
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	require.NoError(t, l.EditBox(idx, types.Rect{X: 10, Y: 10, W: 50, H: 50}, 3))
	assert.True(t, l.Dirty())

	require.NoError(t, l.Save())
	assert.False(t, l.Dirty())

	data, err := os.ReadFile(filepath.Join(root, "birds", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, l.LabelText(), string(data))
	assert.Len(t, l.Records(), 2)

	assert.True(t, l.Undo())
	assert.True(t, l.Redo())
	require.NoError(t, l.DeleteBox(0))
	l.Clear()
	assert.Empty(t, l.Boxes())

	require.NoError(t, l.Reload())
	assert.Len(t, l.Boxes(), 2)
}

func TestNavigationAndDelete(t *testing.T) {
	l, root := newLabeler(t)

	moved, err := l.Next()
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, "b.png", l.Position().Image)
	assert.Empty(t, l.Boxes())

	moved, err = l.Next()
	require.NoError(t, err)
	assert.False(t, moved)

	require.NoError(t, l.Goto(0))
	path, ok := l.CurrentPath()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "birds", "a.png"), path)

	require.NoError(t, l.DeleteCurrentImage())
	assert.Equal(t, Position{Collection: "birds", Image: "b.png", Index: 0, Count: 1}, l.Position())
	assert.NoFileExists(t, filepath.Join(root, "birds", "a.txt"))

	moved, err = l.Previous()
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestCollectionSize(t *testing.T) {
	l, root := newLabeler(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))
	require.NoError(t, l.AddBox(types.Box{Rect: types.Rect{X: 1, Y: 1, W: 20, H: 20}, Label: 1}))

	n, err := l.CollectionSize("birds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = l.CollectionSize("empty")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = l.CollectionSize("fish")
	assert.ErrorIs(t, err, types.ErrNotFound)

	assert.Equal(t, "birds", l.Position().Collection)
	assert.Len(t, l.Boxes(), 2)
}

func TestImageInfo(t *testing.T) {
	l, root := newLabeler(t)

	st, err := os.Stat(filepath.Join(root, "birds", "a.png"))
	require.NoError(t, err)

	info, err := l.ImageInfo()
	require.NoError(t, err)
	assert.Equal(t, 1000, info.Width)
	assert.Equal(t, 500, info.Height)
	assert.Equal(t, 2.0, info.AspectRatio)
	assert.Equal(t, filepath.Join(root, "birds", "a.png"), info.Path)
	assert.Equal(t, st.Size(), info.Bytes)
	assert.NotEmpty(t, info.FileSize)

	require.NoError(t, l.DeleteCurrentImage())
	require.NoError(t, l.DeleteCurrentImage())
	_, err = l.ImageInfo()
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDecoderFollowsImageExts(t *testing.T) {
	root := t.TempDir()
	birds := filepath.Join(root, "birds")
	require.NoError(t, os.MkdirAll(birds, 0755))
	// JPEG data behind a .png name
	require.NoError(t, imaging.Save(createTestImage(40, 40), filepath.Join(birds, "a.jpg")))
	require.NoError(t, os.Rename(filepath.Join(birds, "a.jpg"), filepath.Join(birds, "a.png")))

	cfg := config.Default()
	cfg.Dataset.Root = root
	cfg.Dataset.ImageExts = []string{".png"}

	l, err := New(cfg, nil)
	require.NoError(t, err)
	err = l.SelectCollection("birds")
	assert.ErrorIs(t, err, types.ErrImageDecode)

	cfg.Dataset.ImageExts = []string{".png", ".jpg"}
	l, err = New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, l.SelectCollection("birds"))
	original, _ := l.Sizes()
	assert.Equal(t, types.Size{W: 40, H: 40}, original)
}

func TestRender(t *testing.T) {
	l, _ := newLabeler(t)

	out, err := l.Render(render.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 500, 250), out.Bounds())
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, out.NRGBAAt(200, 75))

	require.NoError(t, l.DeleteCurrentImage())
	require.NoError(t, l.DeleteCurrentImage())
	_, err = l.Render(render.DefaultOptions())
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestSuggest(t *testing.T) {
	l, _ := newLabeler(t)

	_, err := l.Suggest(context.Background(), "", 1)
	assert.True(t, errors.Is(err, types.ErrNoSuggestion))

	fv := &fakeVision{answer: &types.Suggestion{
		Label:      "bird",
		Confidence: 0.9,
		Box:        types.Region{X: 0.375, Y: 0.25, W: 0.25, H: 0.5},
	}}
	l.SetSuggester(assist.NewSuggester(fv, assist.Config{SendSize: 64, SendQuality: 80, MinConfidence: 0.3}))

	b, err := l.Suggest(context.Background(), "bird", 4)
	require.NoError(t, err)
	assert.Equal(t, types.Box{Rect: types.Rect{X: 187, Y: 62, W: 125, H: 125}, Label: 4}, b)
	assert.Len(t, l.Boxes(), 2)

	assert.True(t, l.Undo())
	assert.Len(t, l.Boxes(), 1)
}

func TestConcurrentCommandsAreSerialized(t *testing.T) {
	l, _ := newLabeler(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.AddBox(types.Box{Rect: types.Rect{X: i, Y: i, W: 20, H: 20}, Label: i}))
			l.Boxes()
			l.Position()
		}(i)
	}
	wg.Wait()

	assert.Len(t, l.Boxes(), 21)
	for i := 0; i < 21; i++ {
		assert.True(t, l.Undo() || i == 20)
	}
	assert.Len(t, l.Boxes(), 1)
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
