package di_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/modi/di"
)

func declareGraph(t *testing.T, reg *di.Registry) {
	t.Helper()

	require.NoError(t, di.Declare[Clock](reg).Store("clock").Err())
	require.NoError(t, di.Declare[Repo](reg).Store().Inject("Clock").Err())
	require.NoError(t, di.Declare[Service](reg).
		ViewModel("service").
		Inject("Repo").
		Inject("Clock").
		PostConstruct("Start").
		Err())
}

//
// -----------------------------------------------------------------------------
// Get: caching and graph sharing
// -----------------------------------------------------------------------------

func TestGet_ReturnsSameInstance(t *testing.T) {
	t.Parallel()

	reg, inj, _ := newFixture(t)
	declareGraph(t, reg)

	first, err := di.Get[Service](inj, di.Props{})
	require.NoError(t, err)
	second, err := di.Get[Service](inj, di.Props{})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, first.Started)
}

func TestGet_SharesSingletonsAcrossGraph(t *testing.T) {
	t.Parallel()

	reg, inj, _ := newFixture(t)
	declareGraph(t, reg)

	svc := di.MustGet[Service](inj, nil)
	repo := di.MustGet[Repo](inj, nil)
	clock := di.MustGet[Clock](inj, nil)

	assert.Same(t, repo, svc.Repo)
	assert.Same(t, clock, svc.Clock)
	assert.Same(t, clock, repo.Clock)
	assert.Equal(t, 3, inj.Len())
}

func TestGet_UndeclaredPlainStruct(t *testing.T) {
	t.Parallel()

	_, inj, _ := newFixture(t)

	c, err := di.Get[Clock](inj, di.Props{"Zone": "UTC"})
	require.NoError(t, err)
	assert.Equal(t, "UTC", c.Zone)

	_, named := inj.ModelName(c)
	assert.False(t, named)
	assert.Empty(t, inj.Dump())
}

func TestGet_PropsIgnoredOnCacheHit(t *testing.T) {
	t.Parallel()

	reg, inj, _ := newFixture(t)
	declareGraph(t, reg)

	first := di.MustGet[Service](inj, di.Props{"Title": "first"})
	second := di.MustGet[Service](inj, di.Props{"Title": "second"})

	assert.Same(t, first, second)
	assert.Equal(t, "first", second.Title)
}

func TestGet_PropsOverrideDependencies(t *testing.T) {
	t.Parallel()

	reg, inj, _ := newFixture(t)
	declareGraph(t, reg)

	own := &Repo{DSN: "override"}
	svc := di.MustGet[Service](inj, di.Props{"Repo": own, "Count": int32(7)})

	assert.Same(t, own, svc.Repo)
	assert.Equal(t, 7, svc.Count)
	// the injected Repo was still resolved and cached
	assert.NotSame(t, own, di.MustGet[Repo](inj, nil))
}

func TestGet_PostConstructRunsOnceAfterAssignment(t *testing.T) {
	t.Parallel()

	reg, inj, _ := newFixture(t)
	declareGraph(t, reg)

	svc := di.MustGet[Service](inj, di.Props{"Title": "hello"})
	_ = di.MustGet[Service](inj, nil)

	assert.Equal(t, 1, svc.Started)
	assert.True(t, svc.SawRepo)
	assert.Equal(t, "hello", svc.SawTitle)
}

func TestGet_ByReflectType(t *testing.T) {
	t.Parallel()

	reg, inj, _ := newFixture(t)
	declareGraph(t, reg)

	v, err := inj.Get(reflect.TypeFor[Service](), nil)
	require.NoError(t, err)
	assert.Same(t, di.MustGet[Service](inj, nil), v)

	_, err = inj.Get(reflect.TypeFor[int](), nil)
	var unresolvable di.UnresolvableTypeError
	require.True(t, errors.As(err, &unresolvable))
	assert.Equal(t, `di: cannot resolve "int": not a struct type`, err.Error())

	_, err = inj.Get(nil, nil)
	require.True(t, errors.As(err, &unresolvable))
}

//
// -----------------------------------------------------------------------------
// Dump / ModelName
// -----------------------------------------------------------------------------

func TestDump_NamedOnly(t *testing.T) {
	t.Parallel()

	reg, inj, _ := newFixture(t)
	declareGraph(t, reg)

	svc := di.MustGet[Service](inj, nil)
	dump := inj.Dump()

	require.Len(t, dump, 2)
	assert.Same(t, svc, dump["service"])
	assert.Same(t, svc.Clock, dump["clock"])

	// the map is a copy
	delete(dump, "service")
	assert.Len(t, inj.Dump(), 2)
}

func TestModelName(t *testing.T) {
	t.Parallel()

	reg, inj, _ := newFixture(t)
	declareGraph(t, reg)

	svc := di.MustGet[Service](inj, nil)

	name, ok := inj.ModelName(svc)
	require.True(t, ok)
	assert.Equal(t, "service", name)

	_, ok = inj.ModelName(svc.Repo)
	assert.False(t, ok, "unnamed store")
	_, ok = inj.ModelName(&Service{})
	assert.False(t, ok, "not resolved by this injector")
	_, ok = inj.ModelName(nil)
	assert.False(t, ok)
	_, ok = inj.ModelName(map[string]int{})
	assert.False(t, ok)
}

//
// -----------------------------------------------------------------------------
// Failures
// -----------------------------------------------------------------------------

func TestGet_CircularDependency(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		declare func(*di.Registry) error
		get     func(*di.Injector) error
		path    []string
	}{
		{
			name: "direct",
			declare: func(r *di.Registry) error {
				if err := di.Declare[CycA](r).Store().Inject("B").Err(); err != nil {
					return err
				}
				return di.Declare[CycB](r).Store().Inject("A").Err()
			},
			get: func(inj *di.Injector) error {
				_, err := di.Get[CycA](inj, nil)
				return err
			},
			path: []string{"di_test.CycA", "di_test.CycB", "di_test.CycA"},
		},
		{
			name: "transitive",
			declare: func(r *di.Registry) error {
				if err := di.Declare[Ring1](r).Inject("Next").Err(); err != nil {
					return err
				}
				if err := di.Declare[Ring2](r).Inject("Next").Err(); err != nil {
					return err
				}
				return di.Declare[Ring3](r).Inject("Next").Err()
			},
			get: func(inj *di.Injector) error {
				_, err := di.Get[Ring2](inj, nil)
				return err
			},
			path: []string{"di_test.Ring2", "di_test.Ring3", "di_test.Ring1", "di_test.Ring2"},
		},
		{
			name: "self",
			declare: func(r *di.Registry) error {
				return di.Declare[Self](r).ViewModel("self").Inject("Me").Err()
			},
			get: func(inj *di.Injector) error {
				_, err := di.Get[Self](inj, nil)
				return err
			},
			path: []string{"di_test.Self", "di_test.Self"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			reg, inj, hook := newFixture(t)
			require.NoError(t, tc.declare(reg))

			err := tc.get(inj)
			require.Error(t, err)

			var cycle di.CircularDependencyError
			require.True(t, errors.As(err, &cycle))
			assert.Equal(t, tc.path, cycle.Path)

			// nothing cached, and the injector is usable afterwards
			assert.Equal(t, 0, inj.Len())
			assert.Empty(t, inj.Dump())
			_, err = di.Get[Clock](inj, nil)
			require.NoError(t, err)

			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
		})
	}
}

func TestGet_FailedResolutionNotCached(t *testing.T) {
	t.Parallel()

	reg, inj, _ := newFixture(t)
	declareGraph(t, reg)

	_, err := di.Get[Service](inj, di.Props{"Title": 42})
	var propErr di.PropertyError
	require.True(t, errors.As(err, &propErr))
	assert.Equal(t, "Title", propErr.Key)
	assert.Equal(t, `di: property "Title" on di_test.Service: cannot assign int to string`, err.Error())

	_, named := inj.Dump()["service"]
	assert.False(t, named)
	// dependencies that completed stay cached
	assert.Equal(t, 2, inj.Len())

	svc, err := di.Get[Service](inj, di.Props{"Title": "ok"})
	require.NoError(t, err)
	assert.Equal(t, "ok", svc.Title)
}

func TestGet_PropertyErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		props  di.Props
		reason string
	}{
		{name: "unknown", props: di.Props{"Nope": 1}, reason: "no such field"},
		{name: "unexported", props: di.Props{"hidden": &Clock{}}, reason: "field is unexported"},
		{name: "wrong type", props: di.Props{"Value": "x"}, reason: "cannot assign string to di_test.Clock"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, inj, _ := newFixture(t)
			_, err := di.Get[Weird](inj, tc.props)

			var propErr di.PropertyError
			require.True(t, errors.As(err, &propErr))
			assert.Equal(t, tc.reason, propErr.Reason)
		})
	}
}

func TestGet_NilPropZeroesField(t *testing.T) {
	t.Parallel()

	reg, inj, _ := newFixture(t)
	declareGraph(t, reg)

	svc := di.MustGet[Service](inj, di.Props{"Repo": nil})
	assert.Nil(t, svc.Repo)
	assert.False(t, svc.SawRepo)
}

func TestGet_HookPanicRecovered(t *testing.T) {
	t.Parallel()

	reg, inj, _ := newFixture(t)
	require.NoError(t, di.Declare[Panicky](reg).Store("panicky").PostConstruct("Boom").Err())

	_, err := di.Get[Panicky](inj, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, di.ErrHookPanic))
	assert.Contains(t, err.Error(), "di_test.Panicky.Boom: boom")
	assert.Equal(t, 0, inj.Len())
}

func TestGet_HookErrorFailsDependents(t *testing.T) {
	t.Parallel()

	reg, inj, _ := newFixture(t)
	require.NoError(t, di.Declare[Failing](reg).PostConstruct("Open").Err())
	require.NoError(t, di.Declare[NeedsFailing](reg).Inject("F").Err())

	_, err := di.Get[NeedsFailing](inj, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errStartFailed))

	var depErr di.DependencyError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, "F", depErr.Field)

	var hookErr di.PostConstructError
	require.True(t, errors.As(err, &hookErr))
	assert.Equal(t, "Open", hookErr.Method)
	assert.Equal(t, "di: resolve di_test.NeedsFailing.F: di: post-construct di_test.Failing.Open: start failed", err.Error())
}

func TestMustGet_Panics(t *testing.T) {
	t.Parallel()

	_, inj, _ := newFixture(t)
	assert.Panics(t, func() { di.MustGet[Weird](inj, di.Props{"Nope": 1}) })
}

//
// -----------------------------------------------------------------------------
// Instantiate
// -----------------------------------------------------------------------------

func TestInstantiate_FreshInstanceSharedDeps(t *testing.T) {
	t.Parallel()

	reg, inj, _ := newFixture(t)
	declareGraph(t, reg)

	a, err := di.Instantiate[Service](inj, di.Props{"Title": "a"})
	require.NoError(t, err)
	b, err := di.Instantiate[Service](inj, di.Props{"Title": "b"})
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, "a", a.Title)
	assert.Equal(t, "b", b.Title)
	assert.Equal(t, 1, a.Started)
	assert.Same(t, a.Repo, b.Repo)

	// only the dependencies are cached
	assert.Equal(t, 2, inj.Len())
	_, named := inj.Dump()["service"]
	assert.False(t, named)

	_, err = inj.Instantiate(reflect.TypeFor[string](), nil)
	var unresolvable di.UnresolvableTypeError
	require.True(t, errors.As(err, &unresolvable))
}

func TestInstantiate_DetectsCycle(t *testing.T) {
	t.Parallel()

	reg, inj, _ := newFixture(t)
	require.NoError(t, di.Declare[CycA](reg).Inject("B").Err())
	require.NoError(t, di.Declare[CycB](reg).Inject("A").Err())

	_, err := di.Instantiate[CycA](inj, nil)
	var cycle di.CircularDependencyError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, "di: circular dependency: di_test.CycA -> di_test.CycB -> di_test.CycA", cycle.Error())
}

//
// -----------------------------------------------------------------------------
// Default injector
// -----------------------------------------------------------------------------

type defaultVM struct{ Clock *Clock }

// NOT parallel: uses the default registry and injector.
func TestDefaultInjector_NamedModelStoredAndDumped(t *testing.T) {
	reg := di.DefaultRegistry()
	reg.Reset()
	di.ResetDefaultInjector()
	t.Cleanup(func() {
		reg.Reset()
		di.ResetDefaultInjector()
	})

	require.NoError(t, di.ViewModel[defaultVM]("kuitosViewModel"))
	require.NoError(t, di.Inject[defaultVM]("Clock"))

	inj := di.DefaultInjector()
	assert.Same(t, inj, di.DefaultInjector())
	assert.Same(t, reg, inj.Registry())

	vm, err := di.Get[defaultVM](nil, di.Props{})
	require.NoError(t, err)
	assert.Same(t, vm, inj.Dump()["kuitosViewModel"])
	assert.Equal(t, "kuitosViewModel", di.ModelName(vm))
	assert.Empty(t, di.ModelName(vm.Clock))

	fresh, err := di.Instantiate[defaultVM](nil, nil)
	require.NoError(t, err)
	assert.NotSame(t, vm, fresh)
	assert.Same(t, vm.Clock, fresh.Clock)

	di.ResetDefaultInjector()
	assert.NotSame(t, inj, di.DefaultInjector())
	assert.Empty(t, di.DefaultInjector().Dump())
	assert.Empty(t, di.ModelName(vm))
}
