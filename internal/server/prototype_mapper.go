package server

import (
	"net/url"

	"protospace/internal/api"
	"protospace/internal/core"
	"protospace/internal/models"
)

func imageURL(prototypeID string) string {
	return "/images/" + url.PathEscape(prototypeID)
}

func toAPIPrototype(p models.Prototype) api.Prototype {
	return api.Prototype{
		ID:        p.ID,
		UserID:    p.UserID,
		OwnerName: p.OwnerName,
		Title:     p.Title,
		CatchCopy: p.CatchCopy,
		Concept:   p.Concept,
		ImageURL:  imageURL(p.ID),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toAPIPrototypes(prototypes []models.Prototype) []api.Prototype {
	out := make([]api.Prototype, 0, len(prototypes))
	for _, p := range prototypes {
		out = append(out, toAPIPrototype(p))
	}
	return out
}

func toAPIComment(c models.Comment) api.Comment {
	return api.Comment{
		ID:          c.ID,
		PrototypeID: c.PrototypeID,
		UserID:      c.UserID,
		AuthorName:  c.AuthorName,
		Text:        c.Text,
		CreatedAt:   c.CreatedAt,
	}
}

func toAPIDetail(d *core.Detail) api.PrototypeDetail {
	comments := make([]api.Comment, 0, len(d.Comments))
	for _, c := range d.Comments {
		comments = append(comments, toAPIComment(c))
	}
	return api.PrototypeDetail{Prototype: toAPIPrototype(d.Prototype), Comments: comments}
}

func toAPIUser(u models.User) api.User {
	return api.User{
		ID:         u.ID,
		Name:       u.Name,
		Profile:    u.Profile,
		Occupation: u.Occupation,
		Position:   u.Position,
	}
}
