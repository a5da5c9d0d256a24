package project

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/psilLang/vmtranslator/pkg/hack"
	"github.com/psilLang/vmtranslator/pkg/translator"
	"github.com/psilLang/vmtranslator/pkg/types"
)

type trackedReader struct {
	io.Reader
	closed bool
}

func (r *trackedReader) Close() error {
	r.closed = true
	return nil
}

func reader(text string) *trackedReader {
	return &trackedReader{Reader: strings.NewReader(text)}
}

type bufferWriter struct {
	bytes.Buffer
	closed   bool
	closeErr error
}

func (w *bufferWriter) Close() error {
	w.closed = true
	return w.closeErr
}

var _ = Describe("Pipeline", func() {
	var (
		mockCtrl *gomock.Controller
		source   *MockSource
		sink     *MockSink
		pipeline *Pipeline
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		source = NewMockSource(mockCtrl)
		sink = NewMockSink(mockCtrl)
		pipeline = &Pipeline{Source: source, Sink: sink}

		source.EXPECT().Name().Return("Prog").AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should translate every module and close all readers", func() {
		sys := reader("function Sys.init 0\ncall Main.main 0\nlabel END\ngoto END\n")
		main := reader("function Main.main 0\npush constant 3\nreturn\n")
		out := &bufferWriter{}

		source.EXPECT().Modules().Return([]string{"Sys", "Main"}, nil)
		source.EXPECT().Open("Sys").Return(sys, nil)
		source.EXPECT().Open("Main").Return(main, nil)
		sink.EXPECT().Create().Return(out, nil)

		res, err := pipeline.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Program).To(Equal("Prog"))
		Expect(res.Modules).To(Equal(2))
		Expect(res.Lines).To(Equal(strings.Count(out.String(), "\n")))
		Expect(sys.closed).To(BeTrue())
		Expect(main.closed).To(BeTrue())
		Expect(out.closed).To(BeTrue())
		Expect(out.String()).To(HavePrefix("@256\n"))
		Expect(out.String()).To(ContainSubstring("(Main.main)\n"))

		_, err = hack.Assemble(out.String())
		Expect(err).NotTo(HaveOccurred())
	})

	It("should not create output when translation fails", func() {
		bad := reader("push constant 1\nbogus 2\n")

		source.EXPECT().Modules().Return([]string{"Bad"}, nil)
		source.EXPECT().Open("Bad").Return(bad, nil)

		_, err := pipeline.Run()

		Expect(errors.Is(err, types.ErrSyntax)).To(BeTrue())
		var serr *translator.SourceError
		Expect(errors.As(err, &serr)).To(BeTrue())
		Expect(serr.Line).To(Equal(2))
		Expect(bad.closed).To(BeTrue())
	})

	It("should close earlier readers when a module cannot be opened", func() {
		first := reader("push constant 1\n")
		missing := errors.New("gone")

		source.EXPECT().Modules().Return([]string{"A", "B"}, nil)
		source.EXPECT().Open("A").Return(first, nil)
		source.EXPECT().Open("B").Return(nil, missing)

		_, err := pipeline.Run()

		Expect(err).To(MatchError(missing))
		Expect(err.Error()).To(ContainSubstring("reading B"))
		Expect(first.closed).To(BeTrue())
	})

	It("should report a failure to list modules", func() {
		source.EXPECT().Modules().Return(nil, os.ErrPermission)

		_, err := pipeline.Run()

		Expect(errors.Is(err, os.ErrPermission)).To(BeTrue())
	})

	It("should report a failing close of the output", func() {
		out := &bufferWriter{closeErr: errors.New("disk full")}

		source.EXPECT().Modules().Return([]string{"A"}, nil)
		source.EXPECT().Open("A").Return(reader("push constant 1\n"), nil)
		sink.EXPECT().Create().Return(out, nil)

		_, err := pipeline.Run()

		Expect(err).To(MatchError(ContainSubstring("disk full")))
		Expect(out.closed).To(BeTrue())
	})

	It("should pass options through to the translator", func() {
		out := &bufferWriter{}
		pipeline.Options = []translator.Option{translator.WithAnnotations(true)}

		source.EXPECT().Modules().Return([]string{"A"}, nil)
		source.EXPECT().Open("A").Return(reader("push constant 1\n"), nil)
		sink.EXPECT().Create().Return(out, nil)

		_, err := pipeline.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(HavePrefix("// program Prog\n"))
		Expect(out.String()).To(ContainSubstring("// A[1]: push constant 1\n"))
	})
})

var _ = Describe("Pipeline on disk", func() {
	It("should write the assembly next to the sources", func() {
		dir := filepath.Join(GinkgoT().TempDir(), "Fib")
		Expect(os.Mkdir(dir, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "Sys.vm"),
			[]byte("function Sys.init 0\npush constant 4\ncall Main.double 1\npop temp 0\nlabel L\ngoto L\n"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "Main.vm"),
			[]byte("function Main.double 0\npush argument 0\npush argument 0\nadd\nreturn\n"), 0o644)).To(Succeed())

		src, err := OpenSource(dir)
		Expect(err).NotTo(HaveOccurred())
		p := &Pipeline{Source: src, Sink: FileSink{Path: src.DefaultOutput()}}

		res, err := p.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Modules).To(Equal(2))

		data, err := os.ReadFile(filepath.Join(dir, "Fib.asm"))
		Expect(err).NotTo(HaveOccurred())
		cpu, err := hack.RunSource(string(data), 100_000, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(cpu.Peek(5)).To(Equal(int16(8)))
	})
})
