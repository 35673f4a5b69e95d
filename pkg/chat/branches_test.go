package chat_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/svedentsov/chatstream/pkg/chat"
)

var _ = Describe("ResolveThread", func() {
	var (
		t1, t2, t3 time.Time
		user       chat.Message
		child1     chat.Message
		child2     chat.Message
		child3     chat.Message
		messages   []chat.Message
	)

	BeforeEach(func() {
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		t1, t2, t3 = base, base.Add(time.Minute), base.Add(2*time.Minute)

		user = chat.Message{ID: "u1", Type: chat.TypeUser, Text: "question", CreatedAt: t1}
		child1 = chat.Message{ID: "a1", ParentID: "u1", Type: chat.TypeAssistant, Text: "first", CreatedAt: t1}
		child2 = chat.Message{ID: "a2", ParentID: "u1", Type: chat.TypeAssistant, Text: "second", CreatedAt: t2}
		child3 = chat.Message{ID: "a3", ParentID: "u1", Type: chat.TypeAssistant, Text: "third", CreatedAt: t3}
		messages = []chat.Message{user, child1, child2, child3}
	})

	Context("without an active branch selection", func() {
		It("should select the chronologically last sibling", func() {
			thread := chat.ResolveThread(messages, nil)

			Expect(threadIDs(thread)).To(Equal([]string{"u1", "a3"}))

			info, ok := thread.Branches["a3"]
			Expect(ok).To(BeTrue())
			Expect(info.Total).To(Equal(3))
			Expect(info.Current).To(Equal(3))
			Expect(info.Siblings).To(HaveLen(3))
		})
	})

	Context("with an active branch selection", func() {
		It("should select the chosen sibling and report its position", func() {
			thread := chat.ResolveThread(messages, map[string]string{"u1": "a1"})

			Expect(threadIDs(thread)).To(Equal([]string{"u1", "a1"}))

			info := thread.Branches["a1"]
			Expect(info.Total).To(Equal(3))
			Expect(info.Current).To(Equal(1))
		})

		It("should fall back to the last sibling when the selection is stale", func() {
			thread := chat.ResolveThread(messages, map[string]string{"u1": "deleted"})

			Expect(threadIDs(thread)).To(Equal([]string{"u1", "a3"}))
		})
	})

	Context("with single-child parents", func() {
		It("should never hide a lone response", func() {
			msgs := []chat.Message{user, child1}

			thread := chat.ResolveThread(msgs, nil)

			Expect(threadIDs(thread)).To(Equal([]string{"u1", "a1"}))
			Expect(thread.Branches).To(BeEmpty())
		})
	})

	Context("with dangling parent references", func() {
		It("should keep the message visible without branch info", func() {
			orphan := chat.Message{ID: "x", ParentID: "gone", Type: chat.TypeAssistant, Text: "hi", CreatedAt: t1}

			thread := chat.ResolveThread([]chat.Message{user, orphan}, nil)

			Expect(threadIDs(thread)).To(Equal([]string{"u1", "x"}))
			Expect(thread.Branches).To(BeEmpty())
		})
	})

	Context("with equal timestamps", func() {
		It("should break ties by collection order", func() {
			twinA := chat.Message{ID: "a1", ParentID: "u1", Type: chat.TypeAssistant, CreatedAt: t1}
			twinB := chat.Message{ID: "a2", ParentID: "u1", Type: chat.TypeAssistant, CreatedAt: t1}

			thread := chat.ResolveThread([]chat.Message{user, twinA, twinB}, nil)

			// Stable sort keeps insertion order, so the later insertion wins
			Expect(threadIDs(thread)).To(Equal([]string{"u1", "a2"}))
			Expect(thread.Branches["a2"].Current).To(Equal(2))
		})
	})

	Context("across multiple turns", func() {
		It("should resolve each sibling group independently", func() {
			user2 := chat.Message{ID: "u2", Type: chat.TypeUser, Text: "follow-up", CreatedAt: t2}
			reply2a := chat.Message{ID: "b1", ParentID: "u2", Type: chat.TypeAssistant, CreatedAt: t2}
			reply2b := chat.Message{ID: "b2", ParentID: "u2", Type: chat.TypeAssistant, CreatedAt: t3}
			msgs := append(messages, user2, reply2a, reply2b)

			thread := chat.ResolveThread(msgs, map[string]string{"u1": "a2"})

			Expect(threadIDs(thread)).To(Equal([]string{"u1", "a2", "u2", "b2"}))
			Expect(thread.Branches["a2"].Current).To(Equal(2))
			Expect(thread.Branches["b2"].Current).To(Equal(2))
		})
	})

	It("should be deterministic for identical inputs", func() {
		first := chat.ResolveThread(messages, map[string]string{"u1": "a2"})
		second := chat.ResolveThread(messages, map[string]string{"u1": "a2"})

		Expect(first).To(Equal(second))
	})
})

func threadIDs(thread chat.Thread) []string {
	ids := make([]string, 0, len(thread.Messages))
	for _, m := range thread.Messages {
		ids = append(ids, m.ID)
	}
	return ids
}
