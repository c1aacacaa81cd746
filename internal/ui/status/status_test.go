package status

import (
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"

	"github.com/Robobluez/streamview/internal/stream"
	"github.com/Robobluez/streamview/internal/viewer"
)

func TestMain(m *testing.M) {
	zone.NewGlobal()
	os.Exit(m.Run())
}

func render(info Info) string {
	return ansi.Strip(zone.Scan(View(info, "*", 80)))
}

func TestViewWaiting(t *testing.T) {
	out := render(Info{Viewer: viewer.Stats{Waiting: true}})
	if !strings.Contains(out, viewer.DefaultLeader) {
		t.Fatalf("expected leader text, got:\n%s", out)
	}
	if strings.Count(out, "none yet") != 2 {
		t.Fatalf("expected two empty tables, got:\n%s", out)
	}
}

func TestViewStreams(t *testing.T) {
	out := render(Info{
		FPS: 25,
		Viewer: viewer.Stats{
			Videos:        []string{"cam1", "cam2"},
			Graphs:        []string{"twin scales I/II"},
			BlockedGraphs: []string{"lots of graph variables"},
			Presented:     120,
			Recorded:      100,
			Failed:        2,
		},
		Graph: stream.Stats{Received: 40, Dropped: 1, DecodeErrors: 3},
	})

	for _, want := range []string{
		"cam1", "cam2", "twin scales I/II",
		"lots of graph variables (blocked",
		"120 presented @ 25 fps, 100 recorded (2 failed)",
		"40 msgs, 1 dropped, 3 malformed",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, viewer.DefaultLeader) {
		t.Fatal("leader should be hidden once data arrived")
	}
}

func TestViewButtons(t *testing.T) {
	out := render(Info{LiveURL: "http://127.0.0.1:8090/"})
	if !strings.Contains(out, "record") || !strings.Contains(out, "snapshot") || !strings.Contains(out, "live http://127.0.0.1:8090/") {
		t.Fatalf("missing buttons:\n%s", out)
	}

	out = render(Info{Viewer: viewer.Stats{Recording: true, RecordDir: "FILES/video-20240101-1200"}})
	if !strings.Contains(out, "● recording") || !strings.Contains(out, "FILES/video-20240101-1200") {
		t.Fatalf("expected recording state:\n%s", out)
	}
	if strings.Contains(out, "live ") {
		t.Fatal("live button shown without url")
	}
}

func TestViewMessage(t *testing.T) {
	out := render(Info{Message: "snapshot saved to FILES/snapshot.png"})
	if !strings.Contains(out, "snapshot saved to FILES/snapshot.png") {
		t.Fatalf("expected message:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("a very long stream name", 10); ansi.StringWidth(got) > 10 || !strings.HasSuffix(got, "…") {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("expected unchanged, got %q", got)
	}
}

func TestHeaderFillsWidth(t *testing.T) {
	h := ansi.Strip(Header(60, "websocket"))
	if ansi.StringWidth(h) != 60 {
		t.Fatalf("expected width 60, got %d: %q", ansi.StringWidth(h), h)
	}
	if !strings.Contains(h, "streamview") || !strings.HasSuffix(strings.TrimRight(h, " "), "websocket") {
		t.Fatalf("unexpected header %q", h)
	}
}
