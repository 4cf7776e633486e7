package social

import (
	"context"
	"net/http"
	"time"

	"resona/api/internal/middleware"
	"resona/api/internal/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Handler owns playlist likes and follows. These endpoints maintain the
// likeCount/followCount counters on the playlist with $inc updates; they sit
// outside the playlist store's save path on purpose, since counters from
// other users are not owner activity and must not delay draft reaping.
type Handler struct {
	db *mongo.Database
}

func NewHandler(db *mongo.Database) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, auth *middleware.Auth) {
	g := r.Group("/social")
	g.Use(auth.RequireAuth())

	g.POST("/like", h.ToggleLike)
	g.POST("/follow", h.ToggleFollow)
	g.GET("/is-liked", h.GetIsLiked)
	g.GET("/library", h.GetLibrary)
}

// ToggleLike adds or removes the current user's like on a playlist.
// POST /social/like?playlistId=...
func (h *Handler) ToggleLike(c *gin.Context) {
	h.toggle(c, "liked", "likeCount")
}

// ToggleFollow adds or removes the current user's follow on a playlist.
// POST /social/follow?playlistId=...
func (h *Handler) ToggleFollow(c *gin.Context) {
	h.toggle(c, "followed", "followCount")
}

func (h *Handler) toggle(c *gin.Context, memberField, counterField string) {
	plID, err := primitive.ObjectIDFromHex(c.Query("playlistId"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid playlist id!"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	playlists := h.db.Collection(models.PlaylistsCollection)

	count, _ := playlists.CountDocuments(ctx, bson.M{"_id": plID, "privacy": bson.M{"$ne": "private"}})
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Playlist not found!"})
		return
	}

	profile := middleware.GetUser(c)
	ownerID, _ := primitive.ObjectIDFromHex(profile.ID)
	engagements := h.db.Collection(models.EngagementsCollection)

	existing, _ := engagements.CountDocuments(ctx, bson.M{"owner": ownerID, memberField: plID})

	var status string
	if existing > 0 {
		engagements.UpdateOne(ctx, bson.M{"owner": ownerID}, bson.M{"$pull": bson.M{memberField: plID}}) //nolint:errcheck
		playlists.UpdateOne(ctx, bson.M{"_id": plID}, bson.M{"$inc": bson.M{counterField: -1}})          //nolint:errcheck
		status = "removed"
	} else {
		hasDoc, _ := engagements.CountDocuments(ctx, bson.M{"owner": ownerID})
		if hasDoc > 0 {
			engagements.UpdateOne(ctx, bson.M{"owner": ownerID}, bson.M{"$addToSet": bson.M{memberField: plID}}) //nolint:errcheck
		} else {
			doc := models.Engagement{ID: primitive.NewObjectID(), Owner: ownerID, Liked: []primitive.ObjectID{}, Followed: []primitive.ObjectID{}}
			if memberField == "liked" {
				doc.Liked = []primitive.ObjectID{plID}
			} else {
				doc.Followed = []primitive.ObjectID{plID}
			}
			engagements.InsertOne(ctx, doc) //nolint:errcheck
		}
		playlists.UpdateOne(ctx, bson.M{"_id": plID}, bson.M{"$inc": bson.M{counterField: 1}}) //nolint:errcheck
		status = "added"
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

// GetIsLiked checks whether the current user liked a playlist.
// GET /social/is-liked?playlistId=...
func (h *Handler) GetIsLiked(c *gin.Context) {
	plID, err := primitive.ObjectIDFromHex(c.Query("playlistId"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid playlist id!"})
		return
	}

	profile := middleware.GetUser(c)
	ownerID, _ := primitive.ObjectIDFromHex(profile.ID)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	count, _ := h.db.Collection(models.EngagementsCollection).CountDocuments(ctx, bson.M{
		"owner": ownerID,
		"liked": plID,
	})
	c.JSON(http.StatusOK, gin.H{"result": count > 0})
}

// GetLibrary returns the playlists the current user liked and follows, with
// basic playlist info populated.
// GET /social/library
func (h *Handler) GetLibrary(c *gin.Context) {
	profile := middleware.GetUser(c)
	ownerID, _ := primitive.ObjectIDFromHex(profile.ID)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "owner", Value: ownerID}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "playlists"},
			{Key: "localField", Value: "liked"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "likedPlaylists"},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "playlists"},
			{Key: "localField", Value: "followed"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "followedPlaylists"},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "liked", Value: playlistInfoProjection("$likedPlaylists")},
			{Key: "followed", Value: playlistInfoProjection("$followedPlaylists")},
		}}},
	}

	cursor, err := h.db.Collection(models.EngagementsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch library"})
		return
	}
	defer cursor.Close(ctx)

	var results []bson.M
	cursor.All(ctx, &results) //nolint:errcheck

	if len(results) == 0 {
		c.JSON(http.StatusOK, gin.H{"liked": []bson.M{}, "followed": []bson.M{}})
		return
	}
	c.JSON(http.StatusOK, results[0])
}

func playlistInfoProjection(input string) bson.D {
	return bson.D{{Key: "$map", Value: bson.D{
		{Key: "input", Value: input},
		{Key: "as", Value: "pl"},
		{Key: "in", Value: bson.D{
			{Key: "id", Value: "$$pl._id"},
			{Key: "name", Value: "$$pl.name"},
			{Key: "trackCount", Value: "$$pl.trackCount"},
			{Key: "totalDuration", Value: "$$pl.totalDuration"},
			{Key: "likeCount", Value: "$$pl.likeCount"},
			{Key: "followCount", Value: "$$pl.followCount"},
		}},
	}}}
}
