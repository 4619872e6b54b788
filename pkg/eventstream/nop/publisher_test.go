package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/opencode-go/pkg/eventstream"
	"github.com/papercomputeco/opencode-go/pkg/eventstream/nop"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

var _ = Describe("Publisher", func() {
	var _ eventstream.Publisher = nop.NewPublisher()

	It("returns ErrNilEnvelope for nil envelopes", func() {
		p := nop.NewPublisher()
		err := p.Publish(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilEnvelope))
	})

	It("succeeds for non-nil envelopes", func() {
		p := nop.NewPublisher()
		envelope := eventstream.NewEnvelope(opencode.Event{Type: opencode.EventServerConnected}, eventstream.EventSource{})
		Expect(p.Publish(context.Background(), envelope)).To(Succeed())
	})

	It("closes successfully", func() {
		p := nop.NewPublisher()
		Expect(p.Close()).To(Succeed())
	})
})
