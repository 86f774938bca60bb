package extract

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"sprites.runesynergy.dev/internal/atlas"
	"sprites.runesynergy.dev/internal/config"
	"sprites.runesynergy.dev/internal/raster"
	"sprites.runesynergy.dev/internal/status"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func writeAtlas(t *testing.T, dir, stem string, img image.Image, xml string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := raster.Save(filepath.Join(dir, stem+".png"), img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, stem+".xml"), []byte(xml), 0644); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Input = t.TempDir()
	cfg.Output = t.TempDir()
	cfg.Workers = 2
	return cfg
}

func TestFrameOffset(t *testing.T) {
	img := raster.Blank(100, 50)
	fill(img, image.Rect(0, 0, 10, 10), red)

	frame, err := Frame(img, atlas.SubTexture{
		Name: "a", Width: 10, Height: 10, FrameX: -2, FrameWidth: 12, FrameHeight: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if frame.Bounds() != image.Rect(0, 0, 12, 10) {
		t.Fatalf("bounds = %v", frame.Bounds())
	}
	if frame.NRGBAAt(1, 0) != (color.NRGBA{}) || frame.NRGBAAt(2, 0) != red || frame.NRGBAAt(11, 9) != red {
		t.Error("crop not pasted at (2,0)")
	}
}

func TestFrameRotated(t *testing.T) {
	img := raster.Blank(20, 20)
	// stored rotated: 4 wide, 2 tall, with a marker in the top-right corner
	fill(img, image.Rect(5, 5, 9, 7), blue)
	img.SetNRGBA(8, 5, red)

	frame, err := Frame(img, atlas.SubTexture{
		Name: "r", X: 5, Y: 5, Width: 4, Height: 2, FrameWidth: 2, FrameHeight: 4, Rotated: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if frame.Bounds().Size() != image.Pt(2, 4) {
		t.Fatalf("size = %v", frame.Bounds().Size())
	}
	if frame.NRGBAAt(0, 0) != red || frame.NRGBAAt(1, 3) != blue {
		t.Error("region not rotated back")
	}
}

func TestFrameNeverExceedsFrameSize(t *testing.T) {
	img := raster.Blank(64, 64)
	fill(img, img.Bounds(), red)
	frame, err := Frame(img, atlas.SubTexture{Width: 40, Height: 40, FrameX: 5, FrameY: -30, FrameWidth: 16, FrameHeight: 8})
	if err != nil {
		t.Fatal(err)
	}
	if frame.Bounds().Size() != image.Pt(16, 8) {
		t.Errorf("size = %v", frame.Bounds().Size())
	}
}

func TestFrameRejectsEmpty(t *testing.T) {
	if _, err := Frame(raster.Blank(4, 4), atlas.SubTexture{Width: 0, Height: 3, FrameWidth: 1, FrameHeight: 1}); err == nil {
		t.Error("empty region accepted")
	}
	if _, err := Frame(raster.Blank(4, 4), atlas.SubTexture{Width: 2, Height: 3, FrameWidth: 0, FrameHeight: 3}); err == nil {
		t.Error("empty frame accepted")
	}
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)

	sheet := raster.Blank(100, 50)
	fill(sheet, image.Rect(0, 0, 10, 10), red)
	fill(sheet, image.Rect(20, 0, 25, 5), blue)
	writeAtlas(t, filepath.Join(cfg.Input, "chars"), "sheet", sheet, `<TextureAtlas imagePath="sheet.png">
	<SubTexture name="a" x="0" y="0" width="10" height="10" frameX="-2" frameY="0" frameWidth="12" frameHeight="10"/>
	<SubTexture name="idle/b" x="20" y="0" width="5" height="5"/>
</TextureAtlas>`)

	// broken descriptor: reported and skipped
	writeAtlas(t, cfg.Input, "broken", raster.Blank(4, 4), `<TextureAtlas><SubTexture`)
	// reserved output folder: never visited
	writeAtlas(t, filepath.Join(cfg.Input, "frames"), "old", raster.Blank(4, 4), `<TextureAtlas><SubTexture name="z" width="1" height="1"/></TextureAtlas>`)
	// png without descriptor: ignored
	raster.Save(filepath.Join(cfg.Input, "loose.png"), raster.Blank(2, 2))

	var rec status.Recorder
	sum, err := Run(context.Background(), cfg, &rec)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Atlases != 1 || sum.Frames != 2 || sum.Failed != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if rec.Total() != 2 || rec.Count() != 2 {
		t.Errorf("progress = %d/%d", rec.Count(), rec.Total())
	}
	if rec.Last() != "Extracted 2 frames" {
		t.Errorf("last status = %q", rec.Last())
	}
	skipped := false
	for _, msg := range rec.Messages() {
		if strings.HasPrefix(msg, "Error in ") && strings.Contains(msg, "broken.xml, skipping") {
			skipped = true
		}
	}
	if !skipped {
		t.Errorf("broken descriptor not reported: %v", rec.Messages())
	}

	dir := filepath.Join(cfg.Output, "chars", "sheet")
	a, err := raster.Open(filepath.Join(dir, "a.png"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Bounds().Size() != image.Pt(12, 10) || a.NRGBAAt(2, 0) != red {
		t.Error("a.png has the wrong geometry")
	}
	if _, err := os.Stat(filepath.Join(dir, "idle_b.png")); err != nil {
		t.Error(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "100x50.txt")); err != nil {
		t.Error(err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output, "frames")); !os.IsNotExist(err) {
		t.Error("reserved folder was extracted")
	}
}

func TestRunNameCollision(t *testing.T) {
	cfg := testConfig(t)
	sheet := raster.Blank(8, 8)
	fill(sheet, image.Rect(4, 0, 8, 4), red)
	writeAtlas(t, cfg.Input, "dup", sheet, `<TextureAtlas>
	<SubTexture name="a:b" x="0" y="0" width="4" height="4"/>
	<SubTexture name="a?b" x="4" y="0" width="4" height="4"/>
</TextureAtlas>`)

	var rec status.Recorder
	if _, err := Run(context.Background(), cfg, &rec); err != nil {
		t.Fatal(err)
	}
	warned := false
	for _, msg := range rec.Messages() {
		warned = warned || strings.HasPrefix(msg, "Warning:")
	}
	if !warned {
		t.Errorf("no collision warning: %v", rec.Messages())
	}
	got, err := raster.Open(filepath.Join(cfg.Output, "dup", "a_b.png"))
	if err != nil {
		t.Fatal(err)
	}
	if got.NRGBAAt(0, 0) != red {
		t.Error("last write did not win")
	}
}

func TestRunNothingToDo(t *testing.T) {
	cfg := testConfig(t)
	var rec status.Recorder
	sum, err := Run(context.Background(), cfg, &rec)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Atlases != 0 || rec.Last() != "No valid PNG/XML files found" {
		t.Errorf("summary = %+v, status = %q", sum, rec.Last())
	}
}

func TestRunMissingInput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Input = filepath.Join(cfg.Input, "missing")
	if _, err := Run(context.Background(), cfg, status.Discard{}); err == nil {
		t.Error("missing input accepted")
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(t)
	writeAtlas(t, cfg.Input, "s", raster.Blank(4, 4), `<TextureAtlas><SubTexture name="a" width="1" height="1"/></TextureAtlas>`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := Run(ctx, cfg, status.Discard{})
	if err != context.Canceled {
		t.Errorf("err = %v", err)
	}
	if sum.Frames != 0 {
		t.Errorf("frames = %d", sum.Frames)
	}
}
