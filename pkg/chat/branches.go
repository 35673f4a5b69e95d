package chat

import "sort"

// BranchInfo describes one visible message's position within its
// sibling group of alternative responses.
type BranchInfo struct {
	Total    int
	Current  int // 1-based index within the chronologically sorted group
	Siblings []Message
}

// Thread is the linear subsequence of a session's messages that should
// be displayed, plus branch metadata for regenerated turns.
type Thread struct {
	Messages []Message
	Branches map[string]BranchInfo // keyed by visible message id
}

// ResolveThread derives the visible thread from the full message set
// and the per-parent active branch selections. For every parent with
// multiple children exactly one child stays visible: the explicitly
// selected one if it still exists, otherwise the chronologically last.
// The computation is pure; dangling parent references carry no branch
// info and are never treated as fatal.
func ResolveThread(messages []Message, activeBranches map[string]string) Thread {
	siblings := groupSiblings(messages)

	hidden := make(map[string]bool)
	for parentID, group := range siblings {
		if len(group) < 2 {
			continue
		}

		selected := group[len(group)-1].ID
		if chosen, ok := activeBranches[parentID]; ok && containsID(group, chosen) {
			selected = chosen
		}

		for _, m := range group {
			if m.ID != selected {
				hidden[m.ID] = true
			}
		}
	}

	thread := Thread{
		Branches: make(map[string]BranchInfo),
	}
	for _, m := range messages {
		if hidden[m.ID] {
			continue
		}
		thread.Messages = append(thread.Messages, m)

		if !m.IsAssistant() || m.ParentID == "" {
			continue
		}
		group := siblings[m.ParentID]
		if len(group) < 2 {
			continue
		}
		thread.Branches[m.ID] = BranchInfo{
			Total:    len(group),
			Current:  indexOfID(group, m.ID) + 1,
			Siblings: group,
		}
	}

	return thread
}

// groupSiblings buckets messages by parent, each bucket sorted by
// CreatedAt ascending with collection order as the stable tie-break.
func groupSiblings(messages []Message) map[string][]Message {
	groups := make(map[string][]Message)
	for _, m := range messages {
		if m.ParentID == "" {
			continue
		}
		groups[m.ParentID] = append(groups[m.ParentID], m)
	}

	for parentID, group := range groups {
		sorted := make([]Message, len(group))
		copy(sorted, group)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		})
		groups[parentID] = sorted
	}

	return groups
}

func containsID(group []Message, id string) bool {
	return indexOfID(group, id) >= 0
}

func indexOfID(group []Message, id string) int {
	for i, m := range group {
		if m.ID == id {
			return i
		}
	}
	return -1
}
