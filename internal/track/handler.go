package track

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"time"

	"resona/api/internal/cloud"
	"resona/api/internal/middleware"
	"resona/api/internal/models"
	"resona/api/internal/playlist"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Handler struct {
	db        *mongo.Database
	cloud     *cloud.Client
	playlists *playlist.Store
}

func NewHandler(db *mongo.Database, cloudClient *cloud.Client, playlists *playlist.Store) *Handler {
	return &Handler{db: db, cloud: cloudClient, playlists: playlists}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, auth *middleware.Auth) {
	g := r.Group("/track")

	g.POST("/create", middleware.UploadRateLimit(), auth.RequireAuth(), middleware.IsVerified(), h.CreateTrack)
	g.PATCH("/:trackId", middleware.UploadRateLimit(), auth.RequireAuth(), middleware.IsVerified(), h.UpdateTrack)
	g.DELETE("/:trackId", auth.RequireAuth(), middleware.IsVerified(), h.DeleteTrack)
	g.GET("/latest", h.GetLatestUploads)
}

type createTrackReq struct {
	Title    string `form:"title" binding:"required"`
	About    string `form:"about" binding:"required"`
	Category string `form:"category" binding:"required"`
	// Duration in seconds, probed client-side; 0 means unknown.
	Duration int `form:"duration"`
}

// CreateTrack uploads audio (and optional poster) to Cloudinary and saves the
// track document.
// POST /track/create
func (h *Handler) CreateTrack(c *gin.Context) {
	var req createTrackReq
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !slices.Contains(models.TrackCategories, req.Category) {
		req.Category = "Others"
	}
	if req.Duration < 0 {
		req.Duration = 0
	}

	audioFile, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Audio file is missing!"})
		return
	}
	defer audioFile.Close()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	profile := middleware.GetUser(c)
	ownerID, _ := primitive.ObjectIDFromHex(profile.ID)

	audioResult, err := h.cloud.UploadAudio(ctx, audioFile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload audio"})
		return
	}

	newTrack := models.Track{
		ID:        primitive.NewObjectID(),
		Title:     req.Title,
		About:     req.About,
		Category:  req.Category,
		Duration:  req.Duration,
		Owner:     ownerID,
		File:      models.TrackFile{URL: audioResult.URL, PublicID: audioResult.PublicID},
		Likes:     []primitive.ObjectID{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	posterFile, _, err := c.Request.FormFile("poster")
	if err == nil {
		defer posterFile.Close()
		posterResult, err := h.cloud.UploadPoster(ctx, posterFile)
		if err == nil {
			newTrack.Poster = &models.TrackFile{URL: posterResult.URL, PublicID: posterResult.PublicID}
		}
	}

	if _, err := h.db.Collection(models.TracksCollection).InsertOne(ctx, newTrack); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save track"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"track": trackResponse(&newTrack)})
}

// UpdateTrack updates metadata and optionally replaces the poster.
// PATCH /track/:trackId
func (h *Handler) UpdateTrack(c *gin.Context) {
	trackID, err := primitive.ObjectIDFromHex(c.Param("trackId"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid track id!"})
		return
	}

	var req createTrackReq
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !slices.Contains(models.TrackCategories, req.Category) {
		req.Category = "Others"
	}

	profile := middleware.GetUser(c)
	ownerID, _ := primitive.ObjectIDFromHex(profile.ID)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	tracks := h.db.Collection(models.TracksCollection)

	setFields := bson.M{
		"title":     req.Title,
		"about":     req.About,
		"category":  req.Category,
		"updatedAt": time.Now(),
	}
	if req.Duration > 0 {
		setFields["duration"] = req.Duration
	}

	var track models.Track
	err = tracks.FindOneAndUpdate(ctx,
		bson.M{"_id": trackID, "owner": ownerID},
		bson.M{"$set": setFields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&track)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Track not found!"})
		return
	}

	posterFile, _, err := c.Request.FormFile("poster")
	if err == nil {
		defer posterFile.Close()

		if track.Poster != nil && track.Poster.PublicID != "" {
			h.cloud.DestroyImage(ctx, track.Poster.PublicID) //nolint:errcheck
		}

		posterResult, err := h.cloud.UploadPoster(ctx, posterFile)
		if err == nil {
			poster := models.TrackFile{URL: posterResult.URL, PublicID: posterResult.PublicID}
			track.Poster = &poster
			tracks.UpdateOne(ctx, bson.M{"_id": trackID}, bson.M{"$set": bson.M{"poster": poster}}) //nolint:errcheck
		}
	}

	c.JSON(http.StatusOK, gin.H{"track": trackResponse(&track)})
}

// DeleteTrack removes a track, its Cloudinary assets, and every playlist
// occurrence. Playlist membership changes go through the playlist store so
// trackCount and totalDuration stay consistent with the shrunk lists.
// DELETE /track/:trackId
func (h *Handler) DeleteTrack(c *gin.Context) {
	trackID, err := primitive.ObjectIDFromHex(c.Param("trackId"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid track id!"})
		return
	}

	profile := middleware.GetUser(c)
	ownerID, _ := primitive.ObjectIDFromHex(profile.ID)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	var track models.Track
	if err := h.db.Collection(models.TracksCollection).
		FindOne(ctx, bson.M{"_id": trackID, "owner": ownerID}).
		Decode(&track); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Track not found!"})
		return
	}

	if track.File.PublicID != "" {
		h.cloud.DestroyAudio(ctx, track.File.PublicID) //nolint:errcheck
	}
	if track.Poster != nil && track.Poster.PublicID != "" {
		h.cloud.DestroyImage(ctx, track.Poster.PublicID) //nolint:errcheck
	}

	if err := h.removeFromPlaylists(ctx, trackID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update playlists"})
		return
	}

	h.db.Collection(models.TracksCollection).DeleteOne(ctx, bson.M{"_id": trackID}) //nolint:errcheck

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Track deleted successfully"})
}

func (h *Handler) removeFromPlaylists(ctx context.Context, trackID primitive.ObjectID) error {
	cursor, err := h.db.Collection(models.PlaylistsCollection).Find(ctx,
		bson.M{"tracks": trackID},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var refs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &refs); err != nil {
		return err
	}

	for _, ref := range refs {
		_, err := h.playlists.Update(ctx, ref.ID, func(pl *models.Playlist) error {
			kept := pl.Tracks[:0:0]
			for _, id := range pl.Tracks {
				if id != trackID {
					kept = append(kept, id)
				}
			}
			pl.Tracks = kept
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// GetLatestUploads returns the most recently uploaded tracks.
// GET /track/latest?limit=
func (h *Handler) GetLatestUploads(c *gin.Context) {
	limit := int64(10)
	if v, err := strconv.ParseInt(c.Query("limit"), 10, 64); err == nil && v > 0 && v <= 50 {
		limit = v
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "users"},
			{Key: "localField", Value: "owner"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "ownerData"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$ownerData"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "id", Value: "$_id"},
			{Key: "title", Value: 1},
			{Key: "about", Value: 1},
			{Key: "category", Value: 1},
			{Key: "duration", Value: 1},
			{Key: "file", Value: "$file.url"},
			{Key: "poster", Value: "$poster.url"},
			{Key: "owner", Value: bson.D{
				{Key: "name", Value: "$ownerData.name"},
				{Key: "id", Value: "$ownerData._id"},
			}},
		}}},
	}

	cursor, err := h.db.Collection(models.TracksCollection).Aggregate(ctx, pipeline)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tracks"})
		return
	}
	defer cursor.Close(ctx)

	var tracks []bson.M
	if err := cursor.All(ctx, &tracks); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode tracks"})
		return
	}

	if tracks == nil {
		tracks = []bson.M{}
	}
	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

func trackResponse(t *models.Track) gin.H {
	posterURL := ""
	if t.Poster != nil {
		posterURL = t.Poster.URL
	}
	return gin.H{
		"id":       t.ID.Hex(),
		"title":    t.Title,
		"about":    t.About,
		"file":     t.File.URL,
		"poster":   posterURL,
		"duration": t.Duration,
		"category": t.Category,
	}
}
