package codegen

import (
	"fmt"
	"strconv"
)

// Allocator hands out the symbols a translation run needs: fresh
// comparison and return labels, module-qualified branch labels and static
// cell names. One Allocator serves one run; counters only grow.
type Allocator struct {
	module      string
	comparisons int
	returns     int
}

// NewAllocator creates an Allocator with both counters at zero.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Reset clears the counters and the current module.
func (a *Allocator) Reset() {
	a.module = ""
	a.comparisons = 0
	a.returns = 0
}

// Seed positions the counters so that the next ids handed out are
// comparisons and returns. Used to give each module of a parallel run a
// disjoint range.
func (a *Allocator) Seed(comparisons, returns int) {
	a.comparisons = comparisons
	a.returns = returns
}

// Counters reports how many comparison ids and return labels were issued.
func (a *Allocator) Counters() (comparisons, returns int) {
	return a.comparisons, a.returns
}

// SetModule sets the module used for statics and branch labels.
func (a *Allocator) SetModule(name string) {
	a.module = name
}

// Module returns the current module name.
func (a *Allocator) Module() string {
	return a.module
}

// NextComparisonID returns a fresh id for one eq/gt/lt site.
func (a *Allocator) NextComparisonID() int {
	id := a.comparisons
	a.comparisons++
	return id
}

// NextReturnLabel returns a fresh resume label for a call to callee.
func (a *Allocator) NextReturnLabel(callee string) string {
	id := a.returns
	a.returns++
	return callee + "$ret$" + strconv.Itoa(id)
}

// StaticSymbol names static cell index of the current module.
func (a *Allocator) StaticSymbol(index int) string {
	return StaticSymbol(a.module, index)
}

// BranchLabel qualifies a label/goto/if-goto name with the current module.
func (a *Allocator) BranchLabel(name string) string {
	return a.module + "$" + name
}

// StaticSymbol names static cell index of module. The assembler allocates
// one RAM cell per distinct symbol.
func StaticSymbol(module string, index int) string {
	return fmt.Sprintf("%s.%d", module, index)
}

// ComparisonLabels returns the true and end labels of comparison id.
func ComparisonLabels(id int) (trueLabel, endLabel string) {
	n := strconv.Itoa(id)
	return "CMP.TRUE$" + n, "CMP.END$" + n
}
