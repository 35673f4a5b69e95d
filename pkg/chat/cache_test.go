package chat_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/svedentsov/chatstream/pkg/chat"
)

var _ = Describe("Cache", func() {
	var cache *chat.Cache

	BeforeEach(func() {
		cache = chat.NewCache()
	})

	Describe("Append and Messages", func() {
		It("should keep messages in insertion order", func() {
			cache.Append("s1", chat.Message{ID: "a"})
			cache.Append("s1", chat.Message{ID: "b"})

			msgs := cache.Messages("s1")
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].ID).To(Equal("a"))
			Expect(msgs[1].ID).To(Equal("b"))
		})

		It("should isolate sessions from each other", func() {
			cache.Append("s1", chat.Message{ID: "a"})
			cache.Append("s2", chat.Message{ID: "b"})

			Expect(cache.Messages("s1")).To(HaveLen(1))
			Expect(cache.Messages("s2")).To(HaveLen(1))
		})

		It("should return a snapshot unaffected by later mutations", func() {
			cache.Append("s1", chat.Message{ID: "a", Text: "before"})
			snapshot := cache.Messages("s1")

			cache.Update("s1", "a", func(m chat.Message) chat.Message {
				m.Text = "after"
				return m
			})

			Expect(snapshot[0].Text).To(Equal("before"))
		})
	})

	Describe("Update", func() {
		It("should apply the mutation to the targeted message only", func() {
			cache.Append("s1", chat.Message{ID: "a", Text: "x"})
			cache.Append("s1", chat.Message{ID: "b", Text: "y"})

			ok := cache.Update("s1", "b", func(m chat.Message) chat.Message {
				m.Text = "changed"
				return m
			})

			Expect(ok).To(BeTrue())
			msgs := cache.Messages("s1")
			Expect(msgs[0].Text).To(Equal("x"))
			Expect(msgs[1].Text).To(Equal("changed"))
		})

		It("should be a no-op for an id that is no longer present", func() {
			cache.Append("s1", chat.Message{ID: "a"})

			ok := cache.Update("s1", "deleted", func(m chat.Message) chat.Message {
				m.Text = "ghost"
				return m
			})

			Expect(ok).To(BeFalse())
			Expect(cache.Messages("s1")).To(HaveLen(1))
		})
	})

	Describe("AppendText", func() {
		It("should concatenate chunks in arrival order", func() {
			cache.Append("s1", chat.Message{ID: "a", Type: chat.TypeAssistant})

			for _, chunk := range []string{"Hel", "lo", " wor", "ld"} {
				cache.AppendText("s1", "a", chunk)
			}

			msg, ok := cache.Get("s1", "a")
			Expect(ok).To(BeTrue())
			Expect(msg.Text).To(Equal("Hello world"))
		})
	})

	Describe("Seed", func() {
		It("should replace a session's collection wholesale", func() {
			cache.Append("s1", chat.Message{ID: "old"})

			cache.Seed("s1", []chat.Message{{ID: "n1"}, {ID: "n2"}})

			msgs := cache.Messages("s1")
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].ID).To(Equal("n1"))
		})
	})

	Describe("Remove", func() {
		It("should drop only the targeted message", func() {
			cache.Append("s1", chat.Message{ID: "a"})
			cache.Append("s1", chat.Message{ID: "b"})

			cache.Remove("s1", "a")

			msgs := cache.Messages("s1")
			Expect(msgs).To(HaveLen(1))
			Expect(msgs[0].ID).To(Equal("b"))
		})
	})

	Describe("Subscribe", func() {
		It("should notify listeners with the mutated session id", func() {
			var seen []string
			cache.Subscribe(func(sessionID string) {
				seen = append(seen, sessionID)
			})

			cache.Append("s1", chat.Message{ID: "a"})
			cache.AppendText("s1", "a", "text")
			cache.Clear("s2")

			Expect(seen).To(Equal([]string{"s1", "s1", "s2"}))
		})

		It("should allow listeners to read the cache re-entrantly", func() {
			var lengths []int
			cache.Subscribe(func(sessionID string) {
				lengths = append(lengths, len(cache.Messages(sessionID)))
			})

			cache.Append("s1", chat.Message{ID: "a"})
			cache.Append("s1", chat.Message{ID: "b"})

			Expect(lengths).To(Equal([]int{1, 2}))
		})

		It("should not notify when an update misses", func() {
			calls := 0
			cache.Subscribe(func(string) { calls++ })

			cache.Update("s1", "missing", func(m chat.Message) chat.Message { return m })

			Expect(calls).To(BeZero())
		})
	})
})
