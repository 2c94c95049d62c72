package resolver

import (
	"fmt"
	"sync"
	"time"

	"github.com/YuCat-OVO/DApi/common"
	"github.com/alitto/pond/v2"
	sreCommon "github.com/devopsext/sre/common"
	"github.com/devopsext/utils"
	"github.com/pterm/pterm"
)

type AugmentOptions struct {
	Workers      int
	ShowProgress bool
}

// Augment converts IP-keyed endpoints into named-domain endpoints by
// resolving certificate domains for every declared port concurrently.
// Originals are always retained, an IP without a certificate still gets
// probed directly.
type Augment struct {
	options  *AugmentOptions
	logger   sreCommon.Logger
	resolver common.Resolver
}

const augmentDefaultWorkers = 128

type augmentHit struct {
	endpoint *common.Endpoint
	domains  []string
}

func (a *Augment) Augment(endpoints *common.Endpoints) *common.Endpoints {

	ipeps := []*common.Endpoint{}
	for _, e := range endpoints.Items() {
		if e == nil || e.IsDomain {
			continue
		}
		ipeps = append(ipeps, e)
	}

	if len(ipeps) == 0 {
		return endpoints.Reduce()
	}

	total := 0
	for _, e := range ipeps {
		total = total + len(e.Ports)
	}

	workers := a.options.Workers
	if workers <= 0 {
		workers = augmentDefaultWorkers
	}

	a.logger.Debug("Augment is resolving %d host/port pairs with %d workers...", total, workers)
	t1 := time.Now()

	var pb *pterm.ProgressbarPrinter
	if a.options.ShowProgress {
		pb, _ = pterm.DefaultProgressbar.WithTotal(total).WithTitle("Resolving certificates").Start()
	}

	pool := pond.NewPool(workers)
	defer pool.StopAndWait()

	group := pool.NewGroup()
	m := &sync.Map{}

	for _, e := range ipeps {
		for _, port := range e.Ports {

			group.Submit(func() {

				domains := a.resolver.Resolve(e.Host, port)
				if len(domains) > 0 {
					m.Store(fmt.Sprintf("%s:%d", e.Host, port), &augmentHit{
						endpoint: e,
						domains:  domains,
					})
				}
				if pb != nil {
					pb.Increment()
				}
			})
		}
	}

	group.Wait()
	if pb != nil {
		pb.Stop()
	}

	r := &common.Endpoints{}
	r.Add(endpoints.Items()...)

	m.Range(func(key, value any) bool {

		hit, ok := value.(*augmentHit)
		if !ok {
			return true
		}

		for _, d := range hit.domains {

			ne, err := hit.endpoint.WithHost(d)
			if err != nil {
				a.logger.Debug("Augment cannot substitute domain %s for %s: %s", d, hit.endpoint.Host, err)
				continue
			}
			r.Add(ne)
		}
		a.logger.Debug("Augment found %d domains for %s: %s", len(hit.domains), key, hit.domains)
		return true
	})

	a.logger.Debug("Augment resolved in %s", time.Since(t1))
	return r.Reduce()
}

func NewAugment(options *AugmentOptions, resolver common.Resolver, observability *common.Observability) *Augment {

	logger := observability.Logs()
	if utils.IsEmpty(resolver) {
		logger.Debug("Augment resolver is not defined. Skipped.")
		return nil
	}

	return &Augment{
		options:  options,
		logger:   logger,
		resolver: resolver,
	}
}
