// Package locator finds nodes in a UI tree by resource id or visible text.
// Absence is a normal outcome: every finder returns nil rather than an error.
package locator

import (
	"context"
	"strings"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

// FindByID returns the first node, in depth-first pre-order, whose full
// resource id equals id.
func FindByID(root domain.UiNode, id string) domain.UiNode {
	if id == "" {
		return nil
	}
	return find(root, func(n domain.UiNode) bool {
		return n.ResourceID() == id
	})
}

// FindByText returns the first node whose text or content description
// contains text, ignoring case.
func FindByText(root domain.UiNode, text string) domain.UiNode {
	if text == "" {
		return nil
	}
	needle := strings.ToLower(text)
	return find(root, func(n domain.UiNode) bool {
		return strings.Contains(strings.ToLower(n.Text()), needle) ||
			strings.Contains(strings.ToLower(n.ContentDesc()), needle)
	})
}

// FindFirstByID tries ids in order; the first id that matches wins.
func FindFirstByID(root domain.UiNode, ids []string) domain.UiNode {
	for _, id := range ids {
		if n := FindByID(root, id); n != nil {
			return n
		}
	}
	return nil
}

// FindFirstByText tries texts in order; the first text that matches wins.
func FindFirstByText(root domain.UiNode, texts []string) domain.UiNode {
	for _, text := range texts {
		if n := FindByText(root, text); n != nil {
			return n
		}
	}
	return nil
}

// LocalizedTexts resolves each string resource key inside pkg for the
// device locale. Keys that fail to resolve are skipped.
func LocalizedTexts(ctx context.Context, resolver domain.StringResolver, pkg string, keys []string) []string {
	if resolver == nil {
		return nil
	}
	texts := make([]string, 0, len(keys))
	for _, key := range keys {
		text, err := resolver.Resolve(ctx, pkg, key)
		if err != nil || text == "" {
			continue
		}
		texts = append(texts, text)
	}
	return texts
}

func find(root domain.UiNode, match func(domain.UiNode) bool) domain.UiNode {
	if isNil(root) {
		return nil
	}
	stack := []domain.UiNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if isNil(n) {
			continue
		}
		if match(n) {
			return n
		}
		children := n.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return nil
}

// isNil catches typed nil pointers stored in the interface.
func isNil(n domain.UiNode) bool {
	if n == nil {
		return true
	}
	type nilChecker interface{ IsNil() bool }
	if c, ok := n.(nilChecker); ok {
		return c.IsNil()
	}
	return false
}
