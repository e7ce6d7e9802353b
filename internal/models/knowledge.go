package models

// KnowledgeArticle is a customer-service FAQ entry the voice agent can read
// from.
type KnowledgeArticle struct {
	BaseModel
	Title    string `json:"title"`
	Category string `gorm:"index" json:"category"`
	Content  string `json:"content"`
	Keywords string `json:"keywords"`
}
