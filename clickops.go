// Package clickops provides the caching and batching core of a ClickUp
// integration: TTL caches for the workspace hierarchy, task catalogue,
// documents and space tags, plus a bounded-concurrency bulk runner.
//
// Each cache lives in its own subpackage and can be constructed
// directly; Open wires them all from one config.Settings.
package clickops

import (
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/clickops/catalog"
	"github.com/jonwraymond/clickops/config"
	"github.com/jonwraymond/clickops/docpage"
	"github.com/jonwraymond/clickops/hierarchy"
	"github.com/jonwraymond/clickops/observe"
	"github.com/jonwraymond/clickops/session"
	"github.com/jonwraymond/clickops/tags"
)

// Options configures Open. Everything is optional.
type Options struct {
	// Settings tunes TTLs, size caps and bulk defaults. The zero value
	// means config.Default().
	Settings config.Settings

	// TeamID keys hierarchy snapshot persistence. Required only when
	// Sessions is set.
	TeamID string

	// Sessions persists hierarchy snapshots across processes. Nil keeps
	// the hierarchy purely in-memory.
	Sessions session.Store

	// Logger receives structured diagnostics. Nil discards them.
	Logger observe.Logger

	// Meter emits cache metrics. Nil disables them.
	Meter metric.Meter
}

// Caches bundles the four cache domains behind one constructor.
type Caches struct {
	Hierarchy *hierarchy.Directory
	Catalog   *catalog.Catalog
	Docs      *docpage.Cache
	Tags      *tags.Cache
}

// Open builds every cache from one settings struct.
func Open(opts Options) (*Caches, error) {
	settings := opts.Settings
	if settings == (config.Settings{}) {
		settings = config.Default()
	}

	var metrics *observe.CacheMetrics
	if opts.Meter != nil {
		var err error
		metrics, err = observe.NewCacheMetrics(opts.Meter)
		if err != nil {
			return nil, err
		}
	}

	return &Caches{
		Hierarchy: hierarchy.New(hierarchy.Config{
			TTL:    settings.HierarchyTTL,
			TeamID: opts.TeamID,
		}, opts.Sessions, opts.Logger, metrics),
		Catalog: catalog.New(catalog.Config{
			ListTTL:          settings.ListTTL,
			SearchTTL:        settings.SearchTTL,
			TaskTTL:          settings.TaskTTL,
			MaxListEntries:   settings.MaxListEntries,
			MaxSearchEntries: settings.MaxSearchEntries,
			MaxTaskRecords:   settings.MaxTaskRecords,
		}, opts.Logger, metrics),
		Docs: docpage.New(docpage.Config{
			TTL:         settings.DocTTL,
			PagesTTL:    settings.DocPagesTTL,
			MaxEntries:  settings.MaxDocEntries,
			MaxDocPages: settings.MaxDocPages,
		}, opts.Logger, metrics),
		Tags: tags.New(tags.Config{
			TTL: settings.TagTTL,
		}, metrics),
	}, nil
}
