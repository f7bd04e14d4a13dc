package engine_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/skdltmxn/pdbtypes/engine"
	"github.com/skdltmxn/pdbtypes/internal/catalog"
	"github.com/skdltmxn/pdbtypes/internal/pdbtest"
	"github.com/skdltmxn/pdbtypes/internal/tpi"
)

const timeout = 5 * time.Second

// firstPDB holds Foo, FOOBAR, bar, MyClass, MyClassExtra, Node and two
// different Clash layouts.
func firstPDB(t testing.TB) string {
	b := pdbtest.New()
	types := &b.Types
	var foo tpi.TypeIndex
	for i, name := range []string{"Foo", "FOOBAR", "bar", "MyClass", "MyClassExtra"} {
		ti := types.UDT(pdbtest.Struct, name, types.FieldList(pdbtest.Member("x", pdbtest.Int, 0)), 1, 4)
		if i == 0 {
			foo = ti
		}
	}

	fwd := types.Forward(pdbtest.Struct, "Node")
	types.UDT(pdbtest.Struct, "Node", types.FieldList(
		pdbtest.Member("foo", foo, 0),
		pdbtest.Member("next", types.Pointer(fwd), 8),
	), 2, 16)

	types.UDT(pdbtest.Struct, "Clash", types.FieldList(pdbtest.Member("x", pdbtest.Int, 0)), 1, 4)
	types.UDT(pdbtest.Struct, "Clash", types.FieldList(pdbtest.Member("y", pdbtest.Int, 0)), 1, 4)
	return b.WriteFile(t)
}

// secondPDB only holds Bar.
func secondPDB(t testing.TB) string {
	b := pdbtest.New()
	b.Types.UDT(pdbtest.Class, "Bar", b.Types.FieldList(pdbtest.Member("y", pdbtest.Char, 0)), 1, 1)
	return b.WriteFile(t)
}

type EngineSuite struct {
	suite.Suite
	sink   *engine.ChannelSink
	engine *engine.Engine
	ctx    context.Context
	cancel context.CancelFunc
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.sink = engine.NewChannelSink()
	s.engine = engine.New(s.sink, engine.WithTool("pdbtypes", "1.2.3"))
	s.ctx, s.cancel = context.WithTimeout(context.Background(), timeout)
}

func (s *EngineSuite) TearDownTest() {
	s.cancel()
	s.Require().NoError(s.engine.Close())
}

func (s *EngineSuite) submit(cmd engine.Command) uint64 {
	seq, err := s.engine.Submit(cmd)
	s.Require().NoError(err)
	return seq
}

func (s *EngineSuite) await(seq uint64) (engine.Event, error) {
	return s.sink.Await(s.ctx, seq)
}

func (s *EngineSuite) load(path string) engine.PDBLoaded {
	ev, err := s.await(s.submit(engine.LoadPDB{Path: path}))
	s.Require().NoError(err)
	return ev.(engine.PDBLoaded)
}

func (s *EngineSuite) filter(cmd engine.UpdateTypeFilter) []string {
	ev, err := s.await(s.submit(cmd))
	s.Require().NoError(err)
	res := ev.(engine.FilteredTypesUpdated)
	names := make([]string, len(res.Types))
	for i, t := range res.Types {
		names[i] = t.Name
	}
	return names
}

func (s *EngineSuite) reconstruct(name string) (string, error) {
	ev, err := s.await(s.submit(engine.ReconstructTypeByName{Name: name}))
	if err != nil {
		return "", err
	}
	return ev.(engine.ReconstructedTypeUpdated).Text, nil
}

func (s *EngineSuite) TestLoad() {
	s.Equal(engine.StateIdle, s.engine.State())

	path := firstPDB(s.T())
	loaded := s.load(path)
	s.Equal(uint64(1), loaded.Generation)
	s.Equal(path, loaded.Path)
	s.Equal("X64", loaded.Architecture)
	s.Equal(8, loaded.TypeCount)
	s.Equal(engine.StateReady, s.engine.State())
	s.Equal(uint64(1), s.engine.Generation())
}

func (s *EngineSuite) TestFilter() {
	s.load(firstPDB(s.T()))

	s.Equal([]string{"Foo", "FOOBAR"}, s.filter(engine.UpdateTypeFilter{Pattern: "foo", CaseInsensitive: true}))
	s.Equal([]string{"MyClass"}, s.filter(engine.UpdateTypeFilter{Pattern: "^MyClass$", UseRegex: true}))
	s.Equal(
		[]string{"Foo", "FOOBAR", "bar", "MyClass", "MyClassExtra", "Node", "Clash", "Clash"},
		s.filter(engine.UpdateTypeFilter{}),
	)

	_, err := s.await(s.submit(engine.UpdateTypeFilter{Pattern: "(", UseRegex: true}))
	s.ErrorIs(err, engine.ErrInvalidQuery)
	s.Equal([]string{"bar"}, s.filter(engine.UpdateTypeFilter{Pattern: "bar"}), "a bad query leaves the engine usable")
}

func (s *EngineSuite) TestReconstruct() {
	s.load(firstPDB(s.T()))

	ev, err := s.await(s.submit(engine.ReconstructTypeByName{
		Name:    "Node",
		Options: engine.ReconstructOptions{PrintHeader: true, PrintDependencies: true},
	}))
	s.Require().NoError(err)
	rec := ev.(engine.ReconstructedTypeUpdated)
	s.Equal("Node", rec.Name)
	s.Equal(uint64(1), rec.ID.Generation)
	s.Contains(rec.Text, "// Information extracted with pdbtypes v1.2.3\n")
	s.Contains(rec.Text, "struct Node\n{\n  /* 0x0000 */ Foo foo;\n  /* 0x0008 */ Node* next;\n};\n")
	s.Contains(rec.Text, "struct Foo\n")
	s.NotContains(rec.Text, "struct Node;")
	s.Less(strings.Index(rec.Text, "struct Foo"), strings.Index(rec.Text, "struct Node"))

	again, err := s.await(s.submit(engine.ReconstructTypeByName{
		Name:    "Node",
		Options: engine.ReconstructOptions{PrintHeader: true, PrintDependencies: true},
	}))
	s.Require().NoError(err)
	s.Equal(rec.Text, again.(engine.ReconstructedTypeUpdated).Text)

	_, err = s.reconstruct("Missing")
	s.ErrorIs(err, engine.ErrNotFound)

	_, err = s.reconstruct("Clash")
	s.ErrorIs(err, engine.ErrAmbiguousName)
	s.ErrorIs(err, catalog.ErrAmbiguousName)
}

func (s *EngineSuite) TestReconstructByID() {
	loaded := s.load(firstPDB(s.T()))

	ev, err := s.await(s.submit(engine.UpdateTypeFilter{Pattern: "MyClassExtra"}))
	s.Require().NoError(err)
	res := ev.(engine.FilteredTypesUpdated)
	s.Require().Len(res.Types, 1)
	s.Equal(loaded.Generation, res.Generation)

	ev, err = s.await(s.submit(engine.ReconstructTypeByID{ID: res.Types[0].ID}))
	s.Require().NoError(err)
	s.Equal("struct MyClassExtra\n{\n  /* 0x0000 */ int x;\n};\n", ev.(engine.ReconstructedTypeUpdated).Text)

	_, err = s.await(s.submit(engine.ReconstructTypeByID{ID: engine.TypeID{Generation: loaded.Generation, Index: 0xFFFF}}))
	s.ErrorIs(err, engine.ErrNotFound)
}

func (s *EngineSuite) TestSessionInvalidation() {
	first := s.load(firstPDB(s.T()))
	_, err := s.reconstruct("Foo")
	s.Require().NoError(err)

	ev, err := s.await(s.submit(engine.UpdateTypeFilter{Pattern: "Foo"}))
	s.Require().NoError(err)
	fooID := ev.(engine.FilteredTypesUpdated).Types[0].ID

	second := s.load(secondPDB(s.T()))
	s.Equal(first.Generation+1, second.Generation)

	_, err = s.reconstruct("Foo")
	s.ErrorIs(err, engine.ErrNotFound)

	_, err = s.await(s.submit(engine.ReconstructTypeByID{ID: fooID}))
	s.ErrorIs(err, engine.ErrStaleSession)

	_, err = s.await(s.submit(engine.UpdateTypeFilter{Generation: first.Generation}))
	s.ErrorIs(err, engine.ErrStaleSession)

	_, err = s.await(s.submit(engine.ReconstructTypeByName{Name: "Bar", Generation: first.Generation}))
	s.ErrorIs(err, engine.ErrStaleSession)

	s.Equal([]string{"Bar"}, s.filter(engine.UpdateTypeFilter{Generation: second.Generation}))
}

func (s *EngineSuite) TestFailedLoadKeepsSession() {
	s.load(firstPDB(s.T()))

	_, err := s.await(s.submit(engine.LoadPDB{Path: s.T().TempDir() + "/missing.pdb"}))
	s.ErrorIs(err, engine.ErrIO)

	garbage := pdbtest.WriteBytes(s.T(), "garbage.pdb", bytes.Repeat([]byte{0xAB}, 2048))
	_, err = s.await(s.submit(engine.LoadPDB{Path: garbage}))
	s.ErrorIs(err, engine.ErrFormat)

	legacy := pdbtest.WriteBytes(s.T(), "legacy.pdb", pdbtest.LegacyHeader())
	_, err = s.await(s.submit(engine.LoadPDB{Path: legacy}))
	s.ErrorIs(err, engine.ErrFormat)

	s.Equal(engine.StateReady, s.engine.State())
	s.Equal(uint64(1), s.engine.Generation())
	s.Equal([]string{"Foo"}, s.filter(engine.UpdateTypeFilter{Pattern: "Foo"}))
}

func (s *EngineSuite) TestCorruptTypeCount() {
	b := pdbtest.New()
	b.Types.UDT(pdbtest.Struct, "Foo", b.Types.FieldList(pdbtest.Member("x", pdbtest.Int, 0)), 1, 4)
	b.TypeIndexEnd = 0xF0000000

	_, err := s.await(s.submit(engine.LoadPDB{Path: b.WriteFile(s.T())}))
	s.ErrorIs(err, engine.ErrFormat)

	s.load(secondPDB(s.T()))
	s.Equal([]string{"Bar"}, s.filter(engine.UpdateTypeFilter{}))
}

func (s *EngineSuite) TestQueryWithoutSession() {
	_, err := s.await(s.submit(engine.UpdateTypeFilter{}))
	s.ErrorIs(err, engine.ErrNoSession)

	_, err = s.reconstruct("Foo")
	s.ErrorIs(err, engine.ErrNoSession)
	s.Equal(engine.StateIdle, s.engine.State())
}

func (s *EngineSuite) TestCommandOrdering() {
	s.load(firstPDB(s.T()))

	// the expensive query goes first and must still be answered first
	q1 := s.submit(engine.ReconstructTypeByName{Name: "Node", Options: engine.ReconstructOptions{PrintDependencies: true}})
	q2 := s.submit(engine.UpdateTypeFilter{Pattern: "bar"})

	ev, err := s.sink.Next(s.ctx)
	s.Require().NoError(err)
	s.Equal(q1, ev.Seq())
	ev, err = s.sink.Next(s.ctx)
	s.Require().NoError(err)
	s.Equal(q2, ev.Seq())
}

func (s *EngineSuite) TestConcurrentProducers() {
	s.load(firstPDB(s.T()))

	const producers, perProducer = 8, 25
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		issued = make(map[int][]uint64)
	)
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perProducer {
				seq, err := s.engine.Submit(engine.UpdateTypeFilter{Pattern: "Foo"})
				if err != nil {
					return
				}
				mu.Lock()
				issued[p] = append(issued[p], seq)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	var last uint64
	for range producers * perProducer {
		ev, err := s.sink.Next(s.ctx)
		s.Require().NoError(err)
		s.Greater(ev.Seq(), last, "events arrive in submission order")
		last = ev.Seq()
	}
	for _, seqs := range issued {
		s.IsIncreasing(seqs)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	e := engine.New(engine.NewChannelSink())
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err := e.Submit(engine.LoadPDB{Path: "x.pdb"})
	assert.ErrorIs(t, err, engine.ErrClosed)
}

func TestStateTransitions(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	path := firstPDB(t)

	sink := engine.NewChannelSink()
	e := engine.New(sink, engine.WithLoader(func(ctx context.Context, p string) (*catalog.Catalog, error) {
		close(started)
		<-release
		return catalog.Load(ctx, p)
	}))
	defer e.Close()

	seq, err := e.Submit(engine.LoadPDB{Path: path})
	require.NoError(t, err)

	<-started
	assert.Equal(t, engine.StateLoading, e.State())

	// queued behind the load
	filterSeq, err := e.Submit(engine.UpdateTypeFilter{Pattern: "Foo"})
	require.NoError(t, err)
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err = sink.Await(ctx, seq)
	require.NoError(t, err)
	ev, err := sink.Await(ctx, filterSeq)
	require.NoError(t, err)
	assert.Len(t, ev.(engine.FilteredTypesUpdated).Types, 1)

	require.Eventually(t, func() bool { return e.State() == engine.StateReady }, timeout, time.Millisecond)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Send(ev engine.Event) error {
	return m.Called(ev).Error(0)
}

func TestSendFailureDoesNotStopWorker(t *testing.T) {
	delivered := make(chan engine.Event, 4)
	sink := new(mockSink)
	sink.On("Send", mock.Anything).Return(engine.ErrSinkClosed).Once()
	sink.On("Send", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		delivered <- args.Get(0).(engine.Event)
	})

	e := engine.New(sink)
	defer e.Close()

	_, err := e.Submit(engine.LoadPDB{Path: firstPDB(t)})
	require.NoError(t, err)
	seq, err := e.Submit(engine.UpdateTypeFilter{Pattern: "bar"})
	require.NoError(t, err)

	select {
	case ev := <-delivered:
		assert.Equal(t, seq, ev.Seq())
		assert.IsType(t, engine.FilteredTypesUpdated{}, ev)
	case <-time.After(timeout):
		t.Fatal("no event after a failed delivery")
	}
	sink.AssertNumberOfCalls(t, "Send", 2)
}

func TestFuncSink(t *testing.T) {
	var (
		mu  sync.Mutex
		got []engine.Event
	)
	done := make(chan struct{})
	e := engine.New(engine.FuncSink(func(ev engine.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
		if len(got) == 2 {
			close(done)
		}
		return nil
	}))
	defer e.Close()

	_, err := e.Submit(engine.UpdateTypeFilter{})
	require.NoError(t, err)
	_, err = e.Submit(engine.LoadPDB{Path: secondPDB(t)})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("events not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.IsType(t, engine.ErrorEvent{}, got[0])
	assert.Equal(t, engine.KindNoSession, got[0].(engine.ErrorEvent).Err.Kind)
	assert.IsType(t, engine.PDBLoaded{}, got[1])
}

func TestChannelSinkClose(t *testing.T) {
	sink := engine.NewChannelSink()
	require.NoError(t, sink.Send(engine.PDBLoaded{}))
	sink.Close()

	assert.ErrorIs(t, sink.Send(engine.PDBLoaded{}), engine.ErrSinkClosed)
	_, err := sink.Next(context.Background())
	assert.ErrorIs(t, err, engine.ErrSinkClosed)

	open := engine.NewChannelSink()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = open.Next(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestErrorKinds(t *testing.T) {
	err := &engine.Error{Kind: engine.KindStaleSession, Detail: "generation 1 retired"}
	assert.Equal(t, "StaleSessionError: generation 1 retired", err.Error())
	assert.ErrorIs(t, err, engine.ErrStaleSession)
	assert.NotErrorIs(t, err, engine.ErrNotFound)

	for k, want := range map[engine.ErrorKind]string{
		engine.KindIO:            "IoError",
		engine.KindFormat:        "FormatError",
		engine.KindInvalidQuery:  "InvalidQueryError",
		engine.KindNotFound:      "NotFoundError",
		engine.KindAmbiguousName: "AmbiguousNameError",
		engine.KindSend:          "SendError",
	} {
		assert.Equal(t, want, k.String())
	}
}
