package mockserver_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/opencode-go/pkg/mockserver"
	"github.com/papercomputeco/opencode-go/pkg/opencode"
)

var _ = Describe("Hub", func() {
	var hub *mockserver.Hub

	BeforeEach(func() {
		hub = mockserver.NewHub(zap.NewNop())
	})

	It("delivers published events to every subscriber", func() {
		first, cancelFirst := hub.Subscribe()
		defer cancelFirst()
		second, cancelSecond := hub.Subscribe()
		defer cancelSecond()

		hub.Publish(opencode.Event{Type: opencode.EventLspUpdated})

		Expect(first).To(Receive(HaveField("Type", opencode.EventLspUpdated)))
		Expect(second).To(Receive(HaveField("Type", opencode.EventLspUpdated)))
	})

	It("closes the channel when a subscription is cancelled", func() {
		events, cancel := hub.Subscribe()
		Expect(hub.Subscribers()).To(Equal(1))

		cancel()
		cancel()

		Expect(hub.Subscribers()).To(Equal(0))
		Eventually(events).Should(BeClosed())
	})

	It("drops events for a subscriber that is not reading", func() {
		events, cancel := hub.Subscribe()
		defer cancel()

		for range 100 {
			hub.Publish(opencode.Event{Type: opencode.EventLspUpdated})
		}

		Expect(len(events)).To(Equal(cap(events)))
	})

	It("closes current and future subscriptions on Close", func() {
		events, cancel := hub.Subscribe()
		defer cancel()

		hub.Close()
		Eventually(events).Should(BeClosed())

		late, cancelLate := hub.Subscribe()
		defer cancelLate()
		Eventually(late).Should(BeClosed())

		hub.Publish(opencode.Event{Type: opencode.EventLspUpdated})
	})
})
