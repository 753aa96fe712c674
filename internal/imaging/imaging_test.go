package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	refURL     = "http://img.test/reference.png"
	sameURL    = "http://img.test/same.png"
	otherURL   = "http://img.test/other.png"
	redURL     = "http://img.test/red.png"
	whiteURL   = "http://img.test/white.png"
	missingURL = "http://img.test/missing.png"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)

	a, err := NewAnalyzer(Options{
		ReferenceImageURL: refURL,
		CacheSize:         16,
		Client:            client,
	}, slog.Default())
	require.NoError(t, err)
	return a
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidImage(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 300, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 300; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// gradientImage brightens left to right when ascending, right to left
// otherwise. The two directions hash to opposite bit vectors.
func gradientImage(ascending bool) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(x * 4)
			if !ascending {
				v = uint8(255 - x*4)
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestGradingMatchIdenticalImage(t *testing.T) {
	a := newTestAnalyzer(t)

	data := pngBytes(t, gradientImage(true))
	httpmock.RegisterResponder("GET", refURL, httpmock.NewBytesResponder(200, data))
	httpmock.RegisterResponder("GET", sameURL, httpmock.NewBytesResponder(200, data))

	match, err := a.GradingMatch(sameURL)
	require.NoError(t, err)
	assert.True(t, match)
}

func TestGradingMatchDifferentImage(t *testing.T) {
	a := newTestAnalyzer(t)

	httpmock.RegisterResponder("GET", refURL,
		httpmock.NewBytesResponder(200, pngBytes(t, gradientImage(true))))
	httpmock.RegisterResponder("GET", otherURL,
		httpmock.NewBytesResponder(200, pngBytes(t, gradientImage(false))))

	match, err := a.GradingMatch(otherURL)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestGradingMatchCachesHashes(t *testing.T) {
	a := newTestAnalyzer(t)

	data := pngBytes(t, gradientImage(true))
	httpmock.RegisterResponder("GET", refURL, httpmock.NewBytesResponder(200, data))
	httpmock.RegisterResponder("GET", sameURL, httpmock.NewBytesResponder(200, data))

	for i := 0; i < 3; i++ {
		_, err := a.GradingMatch(sameURL)
		require.NoError(t, err)
	}

	calls := httpmock.GetCallCountInfo()
	assert.Equal(t, 1, calls["GET "+refURL])
	assert.Equal(t, 1, calls["GET "+sameURL])
}

func TestGradingMatchFetchFailure(t *testing.T) {
	a := newTestAnalyzer(t)

	httpmock.RegisterResponder("GET", refURL,
		httpmock.NewBytesResponder(200, pngBytes(t, gradientImage(true))))
	httpmock.RegisterResponder("GET", missingURL, httpmock.NewStringResponder(404, "gone"))

	_, err := a.GradingMatch(missingURL)
	assert.Error(t, err)
}

func TestClassifyBadge(t *testing.T) {
	a := newTestAnalyzer(t)

	httpmock.RegisterResponder("GET", redURL,
		httpmock.NewBytesResponder(200, pngBytes(t, solidImage(color.RGBA{255, 0, 0, 255}))))
	httpmock.RegisterResponder("GET", whiteURL,
		httpmock.NewBytesResponder(200, pngBytes(t, solidImage(color.RGBA{255, 255, 255, 255}))))

	assert.Equal(t, "YES", a.ClassifyBadge(redURL))
	assert.Equal(t, "NO", a.ClassifyBadge(whiteURL))
}

func TestClassifyBadgeErrorClassification(t *testing.T) {
	a := newTestAnalyzer(t)

	httpmock.RegisterResponder("GET", missingURL, httpmock.NewStringResponder(404, "gone"))

	got := a.ClassifyBadge(missingURL)
	assert.Contains(t, got, "ERROR:")
	assert.LessOrEqual(t, len(got), len("ERROR: ")+errorDetailLimit)
}

func TestClassifyBadgeUndecodableBody(t *testing.T) {
	a := newTestAnalyzer(t)

	httpmock.RegisterResponder("GET", otherURL, httpmock.NewStringResponder(200, "not an image"))

	assert.Contains(t, a.ClassifyBadge(otherURL), "ERROR:")
}
