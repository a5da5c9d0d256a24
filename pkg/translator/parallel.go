package translator

import (
	"runtime"

	"github.com/psilLang/vmtranslator/pkg/codegen"
	"github.com/psilLang/vmtranslator/pkg/types"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// moduleResult is what one worker produces for one module.
type moduleResult struct {
	cmds []sourceCommand
	out  []string
	err  error
}

// translateParallel parses every module, gives each one a disjoint range
// of comparison and return ids equal to what a sequential run would
// assign it, and generates the modules concurrently. Errors are reported
// for the earliest failing module in caller order.
func (t *Translator) translateParallel(program string, modules []Module) ([]string, error) {
	results := make([]moduleResult, len(modules))
	parseErrs := make([]error, len(modules))

	// Workers record errors in their own slot and return nil, so the
	// reported error is the earliest in module order rather than the
	// first to finish.
	var parse errgroup.Group
	parse.SetLimit(runtime.GOMAXPROCS(0))
	for i := range modules {
		parse.Go(func() error {
			results[i].cmds, parseErrs[i] = parseModule(modules[i])
			return nil
		})
	}
	_ = parse.Wait()

	bootstrap := t.bootstrapping(len(modules))
	cmpBase, retBase := 0, 0
	if bootstrap {
		retBase = 1
	}

	var gen errgroup.Group
	gen.SetLimit(runtime.GOMAXPROCS(0))
	for i := range modules {
		cmds := results[i].cmds
		cmpAt, retAt := cmpBase, retBase
		cmpBase += lo.CountBy(cmds, isComparison)
		retBase += lo.CountBy(cmds, isCall)

		gen.Go(func() error {
			alloc := codegen.NewAllocator()
			alloc.Seed(cmpAt, retAt)
			alloc.SetModule(modules[i].Name)
			results[i].out, results[i].err = t.emitModule(codegen.New(alloc), modules[i], cmds)
			return nil
		})
	}
	_ = gen.Wait()

	for i, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		if parseErrs[i] != nil {
			return nil, parseErrs[i]
		}
	}

	out := t.header(program)
	if bootstrap {
		out = append(out, t.bootstrapCode(codegen.New(codegen.NewAllocator()))...)
	}
	for i, r := range results {
		t.logModule(modules[i], r.cmds, r.out)
		out = append(out, r.out...)
	}
	return out, nil
}

func isComparison(sc sourceCommand) bool {
	a, ok := sc.cmd.(types.Arithmetic)
	return ok && a.Op.Comparison()
}

func isCall(sc sourceCommand) bool {
	_, ok := sc.cmd.(types.Call)
	return ok
}
