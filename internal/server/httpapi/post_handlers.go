package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createPostRequest struct {
	Content  string   `json:"content" binding:"required"`
	Hashtags []string `json:"hashtags" binding:"required,min=1"`
}

func (s *Server) createPost(c *gin.Context) {
	var req createPostRequest
	if !bindJSON(c, &req) {
		return
	}

	post, err := s.deps.Posts.CreatePost(c.Request.Context(), callerID(c), req.Content, req.Hashtags)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Post created successfully", "post": post})
}

func (s *Server) showPosts(c *gin.Context) {
	posts, err := s.deps.Posts.ListVisiblePosts(c.Request.Context(), callerID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok", "posts": posts})
}

func (s *Server) deletePost(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := s.deps.Posts.DeletePost(c.Request.Context(), id, callerID(c)); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully."})
}

func (s *Server) likePost(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := s.deps.Posts.ToggleLike(c.Request.Context(), id, callerID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	msg := "Post unliked"
	if res.Liked {
		msg = "Post liked"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "liked": res.Liked, "likesCount": res.LikesCount})
}
