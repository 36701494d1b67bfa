package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/hivdash/internal/core"
)

var tracer = otel.Tracer("github.com/JonMunkholm/hivdash/internal/source")

// Loader fetches one raw source table.
type Loader interface {
	Load(ctx context.Context, def core.SourceDefinition) (core.RawTable, error)
	// Name identifies the backend in logs and metrics.
	Name() string
}

// DirLoader reads sources from CSV files in a directory.
type DirLoader struct {
	Dir string
}

// NewDirLoader creates a loader rooted at dir.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{Dir: dir}
}

// Name implements Loader.
func (l *DirLoader) Name() string { return "csv" }

// Load implements Loader.
func (l *DirLoader) Load(ctx context.Context, def core.SourceDefinition) (core.RawTable, error) {
	if def.Info.File == "" {
		return core.RawTable{}, fmt.Errorf("%w: %s has no file", core.ErrUnknownSource, def.Info.Key)
	}
	if err := ctx.Err(); err != nil {
		return core.RawTable{}, err
	}

	f, err := os.Open(filepath.Join(l.Dir, def.Info.File))
	if err != nil {
		return core.RawTable{}, fmt.Errorf("open %s: %w", def.Info.Key, err)
	}
	defer f.Close()

	r := wrapReader(f)
	t, err := ParseCSV(r, def)
	if err != nil {
		return core.RawTable{}, err
	}
	observeBytes(def.Info.Key, r.n)
	return t, nil
}

// LoadAll fetches every registered source in parallel. The first failure
// cancels the remaining loads and is returned.
func LoadAll(ctx context.Context, l Loader, reg *core.Registry) (map[string]core.RawTable, error) {
	ctx, span := tracer.Start(ctx, "source.LoadAll")
	defer span.End()
	span.SetAttributes(attribute.String("source.backend", l.Name()))

	defs := reg.All()
	var (
		mu  sync.Mutex
		out = make(map[string]core.RawTable, len(defs))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, def := range defs {
		g.Go(func() error {
			t, err := loadOne(gctx, l, def)
			if err != nil {
				return err
			}
			mu.Lock()
			out[def.Info.Key] = t
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

func loadOne(ctx context.Context, l Loader, def core.SourceDefinition) (core.RawTable, error) {
	ctx, span := tracer.Start(ctx, "source.Load")
	defer span.End()
	span.SetAttributes(attribute.String("source.key", def.Info.Key))

	start := time.Now()
	t, err := l.Load(ctx, def)
	observeLoad(def.Info.Key, l.Name(), time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return core.RawTable{}, err
	}

	span.SetAttributes(attribute.Int("source.rows", len(t.Rows)))
	slog.Debug("source loaded",
		"source", def.Info.Key,
		"backend", l.Name(),
		"columns", len(t.Header),
		"rows", len(t.Rows),
		"duration", time.Since(start),
	)
	return t, nil
}
