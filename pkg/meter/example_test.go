package meter_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/hkniberg/meter/pkg/meter"
)

// ExampleNew embeds a meter fed by ticks typed on a terminal.
func ExampleNew() {
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	dir, _ := os.MkdirTemp("", "meter-example")
	defer os.RemoveAll(dir)

	cfg := meter.DefaultConfig()
	cfg.ServerURL = collector.URL
	cfg.MeterName = "kitchen"
	cfg.StoragePath = filepath.Join(dir, "count")

	m, err := meter.New(cfg, meter.WithSource(lineSource("t\nt\nt\n")))
	if err != nil {
		fmt.Printf("failed to create meter: %v\n", err)
		return
	}

	if err := m.Start(context.Background()); err != nil {
		fmt.Printf("failed to start: %v\n", err)
		return
	}
	<-m.Done()
	_ = m.Stop()

	fmt.Println("count:", m.Count(), "pending:", m.Pending())
	// Output: count: 3 pending: 0
}

// lineSource ticks once per line containing a "t".
type lineSource string

func (s lineSource) Run(ctx context.Context, onTick func()) error {
	for _, line := range strings.Split(string(s), "\n") {
		if strings.Contains(line, "t") {
			onTick()
		}
	}
	return nil
}
