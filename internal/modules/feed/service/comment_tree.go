package service

import (
	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/feed/dto"
	"github.com/google/uuid"
)

// BuildCommentTree nests a post's comments under their parents, keeping the
// input order among siblings. Comments whose parent is missing become roots.
func BuildCommentTree(comments []entity.Comment, liked map[uuid.UUID]bool) []*dto.CommentNode {
	nodes := make([]dto.CommentNode, len(comments))
	index := make(map[uuid.UUID]int, len(comments))
	for i, c := range comments {
		nodes[i] = dto.CommentNode{Comment: c, IsLiked: liked[c.ID], Replies: []*dto.CommentNode{}}
		index[c.ID] = i
	}

	roots := []*dto.CommentNode{}
	for i := range nodes {
		parentID := nodes[i].ParentID
		if parentID != nil {
			if p, ok := index[*parentID]; ok && p != i {
				nodes[p].Replies = append(nodes[p].Replies, &nodes[i])
				continue
			}
		}
		roots = append(roots, &nodes[i])
	}
	return roots
}

// subtreeIDs returns rootID and every comment below it.
func subtreeIDs(comments []entity.Comment, rootID uuid.UUID) []uuid.UUID {
	children := make(map[uuid.UUID][]uuid.UUID)
	for _, c := range comments {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}

	ids := []uuid.UUID{rootID}
	seen := map[uuid.UUID]bool{rootID: true}
	for i := 0; i < len(ids); i++ {
		for _, child := range children[ids[i]] {
			if !seen[child] {
				seen[child] = true
				ids = append(ids, child)
			}
		}
	}
	return ids
}
