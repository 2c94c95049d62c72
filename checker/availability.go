package checker

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/YuCat-OVO/DApi/common"
	"github.com/alitto/pond/v2"
	sreCommon "github.com/devopsext/sre/common"
	"github.com/devopsext/utils"
	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"
)

type AvailabilityOptions struct {
	Schedule     string
	Workers      int
	ShowProgress bool
	DumpPath     string
	Rules        *common.EndpointRules
}

// Availability runs the whole pipeline: load seeds from every source,
// fold them per host, augment IP hosts with certificate domains, expand
// the URL space, probe it concurrently and hand the report to every
// configured reporter.
type Availability struct {
	options       *AvailabilityOptions
	logger        sreCommon.Logger
	observability *common.Observability
	sources       *common.Sources
	augmenter     common.Augmenter
	prober        common.Prober
	reporters     *common.Reporters
	lock          *sync.Mutex
}

const AvailabilityCheckerName = "Availability"

const availabilityDefaultWorkers = 64

// Availability

func (a *Availability) Name() string {
	return AvailabilityCheckerName
}

func (a *Availability) Schedule() string {
	return a.options.Schedule
}

func (a *Availability) load() (*common.Endpoints, error) {

	items := a.sources.Items()
	if len(items) == 0 {
		return nil, errors.New("Availability checker cannot find sources")
	}

	g := &errgroup.Group{}
	m := &sync.Map{}

	for _, s := range items {

		g.Go(func() error {

			sr, err := s.Load()
			if err != nil {
				return err
			}
			m.Store(s.Name(), sr)
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	r := &common.Endpoints{}
	m.Range(func(key, value any) bool {

		sr, ok := value.(*common.SourceResult)
		if !ok {
			return false
		}
		r.Add(sr.Endpoints.Items()...)
		return true
	})
	return r.Reduce(), nil
}

// expand flattens the endpoint set into a deduplicated URL list, keeping
// first-seen order.
func (a *Availability) expand(endpoints *common.Endpoints) []string {

	r := []string{}
	for _, e := range endpoints.Items() {

		if e == nil {
			continue
		}
		for _, u := range e.ExpandURLs(a.options.Rules) {
			if !utils.Contains(r, u) {
				r = append(r, u)
			}
		}
	}
	return r
}

func (a *Availability) dump(urls []string) {

	if utils.IsEmpty(a.options.DumpPath) {
		return
	}

	content := strings.Join(urls, "\n")
	if len(urls) > 0 {
		content = fmt.Sprintf("%s\n", content)
	}

	err := os.WriteFile(a.options.DumpPath, []byte(content), 0644)
	if err != nil {
		a.logger.Error("Availability checker cannot dump urls to %s, error: %s", a.options.DumpPath, err)
		return
	}
	a.logger.Debug("Availability checker dumped %d urls to %s", len(urls), a.options.DumpPath)
}

func (a *Availability) probe(urls []string) *common.Report {

	workers := a.options.Workers
	if workers <= 0 {
		workers = availabilityDefaultWorkers
	}

	a.logger.Debug("Availability checker is probing %d urls with %d workers...", len(urls), workers)
	t1 := time.Now()

	var pb *pterm.ProgressbarPrinter
	if a.options.ShowProgress {
		pb, _ = pterm.DefaultProgressbar.WithTotal(len(urls)).WithTitle("Probing endpoints").Start()
	}

	pool := pond.NewPool(workers)
	defer pool.StopAndWait()

	group := pool.NewGroup()
	m := &sync.Map{}

	for _, url := range urls {

		group.Submit(func() {

			m.Store(url, a.prober.Probe(url))
			if pb != nil {
				pb.Increment()
			}
		})
	}

	group.Wait()
	if pb != nil {
		pb.Stop()
	}

	// aggregation is single threaded, the report needs no locking
	r := common.NewReport(a.observability)
	for _, url := range urls {

		v, ok := m.Load(url)
		if !ok {
			continue
		}
		o, ok := v.(common.ProbeOutcome)
		if !ok {
			continue
		}
		r.AddResult(url, o)
	}
	r.SortAll()

	a.logger.Debug("Availability checker probed in %s", time.Since(t1))
	return r
}

func (a *Availability) report(r *common.Report) error {

	items := a.reporters.Items()
	if len(items) == 0 {
		return errors.New("Availability checker cannot find reporters")
	}

	g := &errgroup.Group{}
	for _, rep := range items {

		g.Go(func() error {

			err := rep.Report(r)
			if err != nil {
				a.logger.Error("Availability checker reporter %s error: %s", rep.Name(), err)
			}
			return err
		})
	}
	return g.Wait()
}

func (a *Availability) Check() error {

	if !a.lock.TryLock() {
		return errors.New("Availability checker already in a loop")
	}
	defer a.lock.Unlock()

	endpoints, err := a.load()
	if err != nil {
		a.logger.Debug("Availability checker cannot load from sources, error: %s", err)
		return err
	}
	if endpoints.IsEmpty() {
		return errors.New("Availability checker has no endpoints")
	}
	a.logger.Debug("Availability checker loaded %d endpoints", endpoints.Len())

	if !utils.IsEmpty(a.augmenter) {
		endpoints = a.augmenter.Augment(endpoints)
		a.logger.Debug("Availability checker has %d endpoints after augmentation", endpoints.Len())
	}

	urls := a.expand(endpoints)
	if len(urls) == 0 {
		return errors.New("Availability checker has no urls to probe")
	}
	a.dump(urls)

	return a.report(a.probe(urls))
}

func NewAvailability(options *AvailabilityOptions, observability *common.Observability,
	sources *common.Sources, augmenter common.Augmenter, prober common.Prober, reporters *common.Reporters) *Availability {

	logger := observability.Logs()

	if utils.IsEmpty(prober) {
		logger.Debug("Availability checker prober is not defined. Skipped.")
		return nil
	}

	if options.Rules == nil {
		options.Rules = &common.EndpointRules{}
	}

	return &Availability{
		options:       options,
		logger:        logger,
		observability: observability,
		sources:       sources,
		augmenter:     augmenter,
		prober:        prober,
		reporters:     reporters,
		lock:          &sync.Mutex{},
	}
}
