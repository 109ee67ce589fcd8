package slots

import (
	"sort"
	"strings"
	"sync"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

// ProcedureTable holds dynamic slots created at runtime with slots.create.
// Lookups and invocations share a read lock; create and delete take the write lock.
type ProcedureTable struct {
	mu    sync.RWMutex
	procs map[string]*lambda.Node
}

// NewProcedureTable creates an empty table.
func NewProcedureTable() *ProcedureTable {
	return &ProcedureTable{procs: make(map[string]*lambda.Node)}
}

// Procedures is the process-wide table used unless Options names another.
var Procedures = NewProcedureTable()

// Create stores a copy of body under name, replacing any existing procedure.
func (t *ProcedureTable) Create(name string, body *lambda.Node) {
	stored := body.Clone()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.procs[name] = stored
}

// Get returns a private copy of the named procedure's body.
func (t *ProcedureTable) Get(name string) (*lambda.Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	body, ok := t.procs[name]
	if !ok {
		return nil, false
	}
	return body.Clone(), true
}

// Exists reports whether name is registered.
func (t *ProcedureTable) Exists(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.procs[name]
	return ok
}

// Delete removes name and reports whether it existed.
func (t *ProcedureTable) Delete(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.procs[name]
	delete(t.procs, name)
	return ok
}

// Names returns the sorted names starting with prefix.
func (t *ProcedureTable) Names(prefix string) []string {
	t.mu.RLock()
	names := make([]string, 0, len(t.procs))
	for name := range t.procs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	t.mu.RUnlock()
	sort.Strings(names)
	return names
}

// procedureName reads the required name value of a procedure slot.
func procedureName(n *lambda.Node) (string, error) {
	name, err := lambda.GetEx[string](n)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", perrors.New("LAMBDA-0008", map[string]any{"Slot": n.Name})
	}
	return name, nil
}

func (t *ProcedureTable) createCore(_ runner, _ *signals.Signaler, n *lambda.Node) error {
	name, err := procedureName(n)
	if err != nil {
		return err
	}
	t.Create(name, lambda.New("", nil, cloneAll(n.Children())...))
	return nil
}

// signalCore runs a copy of the procedure with the caller's children as
// .arguments under a fresh result scope, then moves the result into the caller.
func (t *ProcedureTable) signalCore(r runner, s *signals.Signaler, n *lambda.Node) error {
	name, err := procedureName(n)
	if err != nil {
		return err
	}
	body, ok := t.Get(name)
	if !ok {
		return perrors.New("SLOT-0005", map[string]any{"Name": name})
	}

	args, err := cloneResolved(n.Children())
	if err != nil {
		return err
	}
	body.Insert(0, lambda.New(ArgsName, nil, args...))

	result := lambda.New("", nil)
	err = r.scope(s, ResultKey, result, func() error {
		return r.execute(s, body)
	})
	if err != nil {
		return err
	}

	n.Clear()
	n.Value = result.Value
	n.Add(detachChildren(result)...)
	return nil
}

func (t *ProcedureTable) getCore(_ runner, _ *signals.Signaler, n *lambda.Node) error {
	name, err := procedureName(n)
	if err != nil {
		return err
	}
	body, ok := t.Get(name)
	if !ok {
		return perrors.New("SLOT-0005", map[string]any{"Name": name})
	}
	n.Value = nil
	n.Clear()
	n.Add(detachChildren(body)...)
	return nil
}

func (t *ProcedureTable) existsCore(_ runner, _ *signals.Signaler, n *lambda.Node) error {
	name, err := procedureName(n)
	if err != nil {
		return err
	}
	n.Value = t.Exists(name)
	return nil
}

func (t *ProcedureTable) deleteCore(_ runner, _ *signals.Signaler, n *lambda.Node) error {
	name, err := procedureName(n)
	if err != nil {
		return err
	}
	t.Delete(name)
	return nil
}

func (t *ProcedureTable) vocabularyCore(_ runner, _ *signals.Signaler, n *lambda.Node) error {
	prefix, err := lambda.GetEx[string](n)
	if err != nil {
		return err
	}
	n.Value = nil
	n.Clear()
	for _, name := range t.Names(prefix) {
		n.Add(lambda.New("", name))
	}
	return nil
}

// cloneResolved copies nodes, replacing expression values of the copies with
// what they resolve to from the originals' positions.
func cloneResolved(nodes []*lambda.Node) ([]*lambda.Node, error) {
	out := make([]*lambda.Node, len(nodes))
	for i, c := range nodes {
		clone := c.Clone()
		if _, ok := c.Value.(*lambda.Expression); ok {
			v, err := lambda.Evaluate(c)
			if err != nil {
				return nil, err
			}
			clone.Value = copyValue(v)
		}
		out[i] = clone
	}
	return out, nil
}

// detachChildren detaches and returns the children of n.
func detachChildren(n *lambda.Node) []*lambda.Node {
	children := append([]*lambda.Node(nil), n.Children()...)
	n.Clear()
	return children
}
