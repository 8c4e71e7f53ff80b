package export

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/posterkit/layout"
)

const prepareDSL = `
poster Launch {
  canvas 720 360 {
    image logo {
      rect: [20, 20, 100, 100]
      role: logo
      fit: contain
      natural: [50, 50]
      src: "logo-old.png"
    }
    text headline {
      rect: [0, 200, 720, 60]
      "Hello ${brand}"
    }
    text tagline {
      rect: [0, 260, 720, 40]
      "placeholder"
    }
  }
}
`

type sizeProber struct {
	calls []string
	err   error
}

func (p *sizeProber) Probe(_ context.Context, src string) (int, int, error) {
	p.calls = append(p.calls, src)
	if p.err != nil {
		return 0, 0, p.err
	}
	return 200, 100, nil
}

func TestPrepareAppliesContent(t *testing.T) {
	prober := &sizeProber{}
	p := &Preparer{Prober: prober, Author: "Studio"}

	req, err := p.Prepare(context.Background(), Source{
		DSL:    prepareDSL,
		Data:   map[string]any{"brand": "Acme"},
		Params: map[string]string{"tagline": "Fresh deals", "ghost": "x"},
		Logo:   "logo-new.png",
		Info:   Info{Brand: "Acme"},
	})
	require.NoError(t, err)

	poster := req.Poster()
	require.Len(t, poster.Children, 3)
	assert.Equal(t, "Hello Acme", poster.Children[1].Text)
	assert.Equal(t, "Fresh deals", poster.Children[2].Text)

	logo := poster.Children[0]
	assert.Equal(t, "logo-new.png", logo.Media.Source)
	assert.Equal(t, 200.0, logo.Media.NaturalWidth)
	assert.Equal(t, 100.0, logo.Media.NaturalHeight)
	assert.Equal(t, []string{"logo-new.png"}, prober.calls)

	assert.Contains(t, poster.Diagnostics, "ghost: 节点不存在，已跳过")
	assert.Equal(t, "Studio", req.Author())
}

func TestPrepareKeepsDeclaredNaturalSize(t *testing.T) {
	prober := &sizeProber{}
	req, err := (&Preparer{Prober: prober}).Prepare(context.Background(), Source{DSL: prepareDSL})
	require.NoError(t, err)

	assert.Empty(t, prober.calls)
	assert.Equal(t, 50.0, req.Poster().Children[0].Media.NaturalWidth)
	assert.Equal(t, DefaultAuthor, req.Author())
}

func TestPrepareProbeFailureIsDiagnostic(t *testing.T) {
	prober := &sizeProber{err: errors.New("unreachable")}
	req, err := (&Preparer{Prober: prober}).Prepare(context.Background(), Source{DSL: prepareDSL, Logo: "https://example.com/x.png"})
	require.NoError(t, err)

	poster := req.Poster()
	assert.False(t, poster.Children[0].Media.HasNaturalSize())
	require.Len(t, poster.Diagnostics, 1)
	assert.Contains(t, poster.Diagnostics[0], "logo: 无法读取媒体固有尺寸")
}

func TestPrepareLogoWithoutRole(t *testing.T) {
	req, err := (&Preparer{}).Prepare(context.Background(), Source{
		DSL:  `poster P { canvas 100 100 { text t { "x" } } }`,
		Logo: "logo.png",
	})
	require.NoError(t, err)
	require.Len(t, req.Poster().Diagnostics, 1)
	assert.Contains(t, req.Poster().Diagnostics[0], "logo")
}

func TestPrepareInvalidSource(t *testing.T) {
	p := &Preparer{}
	_, err := p.Prepare(context.Background(), Source{DSL: "poster {"})
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = p.Prepare(context.Background(), Source{DSL: `poster P { meta { title: "x" } }`})
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestPrepareExportsTrimmedText(t *testing.T) {
	req, err := (&Preparer{}).Prepare(context.Background(), Source{
		DSL:    prepareDSL,
		Params: map[string]string{"headline": "  Summer sale \n"},
	})
	require.NoError(t, err)

	doc := req.Document()
	require.Len(t, doc.Shapes, 3)
	assert.Equal(t, "Summer sale", doc.Shapes[1].Text)
}

func TestPrepareTextUpdates(t *testing.T) {
	req, err := (&Preparer{}).Prepare(context.Background(), Source{
		DSL:   prepareDSL,
		Texts: map[string]string{"tagline": "New tagline", "logo": "not text", "ghost": "x"},
	})
	require.NoError(t, err)

	poster := req.Poster()
	assert.Equal(t, "New tagline", poster.Children[2].Text)
	assert.Equal(t, "logo-old.png", poster.Children[0].Media.Source)
	require.Len(t, poster.Diagnostics, 2)
	assert.Contains(t, poster.Diagnostics[0], "ghost")
	assert.Contains(t, poster.Diagnostics[1], "logo")
}

func TestPrepareUsesStyleProvider(t *testing.T) {
	captured := &layout.Poster{
		Root: layout.Rect{Width: 144, Height: 72},
		Children: []layout.VisualNode{
			{Name: "t", Kind: layout.KindText, Style: layout.DefaultStyle(), Text: "captured"},
		},
	}
	req, err := (&Preparer{}).Prepare(context.Background(), Source{
		DSL:      "not a poster",
		Provider: layout.StaticProvider{Poster: captured},
		Params:   map[string]string{"t": "updated"},
	})
	require.NoError(t, err)

	assert.Equal(t, "updated", req.Poster().Children[0].Text)
	assert.Equal(t, "captured", captured.Children[0].Text)
	assert.Equal(t, 2.0, req.Document().PageWidth)
}
