package common

import (
	"strings"
	"sync"
	"time"

	sreCommon "github.com/devopsext/sre/common"
	"github.com/devopsext/utils"
	"github.com/go-co-op/gocron"
)

type Checker interface {
	Name() string
	Schedule() string
	Check() error
}

type Checkers struct {
	scheduler *gocron.Scheduler
	logger    sreCommon.Logger
	items     []Checker
}

func (cs *Checkers) Add(c Checker) {

	if utils.IsEmpty(c) {
		return
	}
	cs.items = append(cs.items, c)
}

func (cs *Checkers) Scheduled() bool {
	return cs.scheduler.Len() > 0
}

func (cs *Checkers) schedule(schedule string, wait bool, fun interface{}) {

	var ss *gocron.Scheduler
	if len(strings.Split(schedule, " ")) == 1 {
		ss = cs.scheduler.Every(schedule)
	} else {
		ss = cs.scheduler.Cron(schedule)
	}
	if wait {
		ss = ss.WaitForSchedule()
	}
	ss.Do(fun)
}

func (cs *Checkers) run(wg *sync.WaitGroup, once, wait bool, c Checker) {

	if utils.IsEmpty(c) {
		return
	}
	// run once and return if there is flag
	if once {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Check()
		}()
		return
	}
	// run on schedule if there is one defined
	schedule := c.Schedule()
	if !utils.IsEmpty(schedule) {
		cs.schedule(schedule, wait, c.Check)
		cs.logger.Debug("Checker %s enabled on schedule: %s", c.Name(), schedule)
	}
}

func (cs *Checkers) Start(once, wait bool) {

	wg := &sync.WaitGroup{}

	for _, c := range cs.items {
		cs.run(wg, once, wait, c)
	}
	cs.scheduler.StartAsync()
	wg.Wait()
}

func NewCheckers(observability *Observability) *Checkers {

	return &Checkers{
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    observability.Logs(),
	}
}
