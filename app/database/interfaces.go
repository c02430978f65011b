package database

type PostRepository interface {
	UpsertPost(post ArchivedPost) error
	GetRecentPosts(limit int) ([]ArchivedPost, error)
	GetPost(id string) (*ArchivedPost, error)
	GetPostCount() (int, error)
}
