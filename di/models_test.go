package di_test

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sghaida/modi/di"
)

// Fixture models shared by the di tests. Each test declares them on its own
// registry, so declarations never leak between tests.

type Clock struct{ Zone string }

type Repo struct {
	DSN   string
	Clock *Clock
}

type Service struct {
	Repo  *Repo
	Clock *Clock
	Title string
	Count int

	Started  int
	SawRepo  bool
	SawTitle string
}

func (s *Service) Start() {
	s.Started++
	s.SawRepo = s.Repo != nil
	s.SawTitle = s.Title
}

func (s *Service) Stop() {}

type CycA struct{ B *CycB }
type CycB struct{ A *CycA }

type Ring1 struct{ Next *Ring2 }
type Ring2 struct{ Next *Ring3 }
type Ring3 struct{ Next *Ring1 }

type Self struct{ Me *Self }

type Panicky struct{}

func (p *Panicky) Boom() { panic("boom") }

type Failing struct{}

var errStartFailed = errors.New("start failed")

func (f *Failing) Open() (int, error) { return 0, errStartFailed }

type NeedsFailing struct{ F *Failing }

type Weird struct {
	hidden *Clock
	Value  Clock
	Many   []*Clock
}

func (w *Weird) WithArg(int) {}

func newFixture(t *testing.T) (*di.Registry, *di.Injector, *test.Hook) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	reg := di.NewRegistry()
	inj := di.NewInjector(di.WithRegistry(reg), di.WithLogger(logger))
	return reg, inj, hook
}
