package browser

import (
	"context"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFrame implements the few playwright.Frame methods Frames uses.
type stubFrame struct {
	playwright.Frame
	name   string
	url    string
	parent playwright.Frame
}

func (f *stubFrame) Name() string { return f.name }
func (f *stubFrame) URL() string  { return f.url }

func (f *stubFrame) ParentFrame() playwright.Frame {
	if f.parent == nil {
		return nil
	}
	return f.parent
}

type stubPage struct {
	playwright.Page
	frames []playwright.Frame
}

func (p *stubPage) Frames() []playwright.Frame { return p.frames }

func TestSessionFramesStable(t *testing.T) {
	main := &stubFrame{url: "https://cwcx.uestc.edu.cn/WFManager/home.jsp"}
	workflow := &stubFrame{name: "workflow", parent: main}
	dialog := &stubFrame{url: "https://cwcx.uestc.edu.cn/card.jsp", parent: main}
	s := &Session{Page: &stubPage{frames: []playwright.Frame{main, workflow, dialog}}}

	first, err := s.Frames(context.Background())
	require.NoError(t, err)
	second, err := s.Frames(context.Background())
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.Equal(t, "frame workflow", first[0].Name())
	assert.Equal(t, "frame https://cwcx.uestc.edu.cn/card.jsp", first[1].Name())
	for i := range first {
		assert.True(t, first[i] == second[i], "frame %d should be the same scope on every call", i)
	}

	seen := map[Scope]bool{}
	for _, sc := range append(first, second...) {
		seen[sc] = true
	}
	assert.Len(t, seen, 2)
}

func TestSessionFramesCancelled(t *testing.T) {
	s := &Session{Page: &stubPage{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Frames(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
