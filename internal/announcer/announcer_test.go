package announcer_test

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/healthbridge/internal/announcer"
)

type errWriter struct {
	err error
}

func (w errWriter) Write(p []byte) (int, error) {
	return 0, w.err
}

type countingFlusher struct {
	buf     bytes.Buffer
	flushes int
}

func (f *countingFlusher) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

func (f *countingFlusher) Flush() error {
	f.flushes++
	return nil
}

var _ = Describe("Announcer", func() {
	var (
		buf *bytes.Buffer
		log *slog.Logger
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	})

	It("emits one newline-terminated announce line", func() {
		a := announcer.New(buf, log)

		err := a.Announce(netip.MustParsePrefix("10.0.100.1/32"))
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(Equal("announce route 10.0.100.1/32 next-hop self\n"))
	})

	It("emits one newline-terminated withdraw line", func() {
		a := announcer.New(buf, log)

		err := a.Withdraw(netip.MustParsePrefix("10.0.100.1/32"))
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(Equal("withdraw route 10.0.100.1/32 next-hop self\n"))
	})

	It("preserves the mask length of non-host prefixes", func() {
		a := announcer.New(buf, log)

		Expect(a.Announce(netip.MustParsePrefix("192.0.2.0/24"))).To(Succeed())
		Expect(buf.String()).To(Equal("announce route 192.0.2.0/24 next-hop self\n"))
	})

	It("keeps commands in emission order", func() {
		a := announcer.New(buf, log)

		Expect(a.Announce(netip.MustParsePrefix("10.0.100.1/32"))).To(Succeed())
		Expect(a.Withdraw(netip.MustParsePrefix("10.0.100.2/32"))).To(Succeed())

		Expect(buf.String()).To(Equal(
			"announce route 10.0.100.1/32 next-hop self\n" +
				"withdraw route 10.0.100.2/32 next-hop self\n"))
	})

	It("flushes buffered writers after every line", func() {
		f := &countingFlusher{}
		a := announcer.New(f, log)

		Expect(a.Announce(netip.MustParsePrefix("10.0.100.1/32"))).To(Succeed())
		Expect(a.Withdraw(netip.MustParsePrefix("10.0.100.1/32"))).To(Succeed())

		Expect(f.flushes).To(Equal(2))
	})

	It("surfaces a closed-channel write as an error", func() {
		a := announcer.New(errWriter{err: io.ErrClosedPipe}, log)

		err := a.Announce(netip.MustParsePrefix("10.0.100.1/32"))
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, io.ErrClosedPipe)).To(BeTrue())
	})

	It("treats a short write as an error", func() {
		a := announcer.New(shortWriter{}, log)

		err := a.Withdraw(netip.MustParsePrefix("10.0.100.1/32"))
		Expect(errors.Is(err, io.ErrShortWrite)).To(BeTrue())
	})
})

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	if len(p) > 1 {
		return 1, nil
	}
	return len(p), nil
}
