package playlist

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"resona/api/internal/cloud"
	"resona/api/internal/events"
	"resona/api/internal/middleware"
	"resona/api/internal/models"
	"resona/api/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Handler struct {
	db     *mongo.Database
	store  *Store
	cloud  *cloud.Client
	events *events.Publisher
}

func NewHandler(db *mongo.Database, store *Store, cloudClient *cloud.Client, publisher *events.Publisher) *Handler {
	return &Handler{db: db, store: store, cloud: cloudClient, events: publisher}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, auth *middleware.Auth) {
	g := r.Group("/playlist")

	g.POST("/create", auth.RequireAuth(), h.CreatePlaylist)
	g.PATCH("", auth.RequireAuth(), h.UpdatePlaylist)
	g.DELETE("", auth.RequireAuth(), h.RemovePlaylist)
	g.POST("/tracks", auth.RequireAuth(), h.AddTrack)
	g.DELETE("/tracks", auth.RequireAuth(), h.RemoveTrack)
	g.PUT("/tracks", auth.RequireAuth(), h.ReorderTracks)
	g.POST("/cover", middleware.UploadRateLimit(), auth.RequireAuth(), h.UploadCover)
	g.GET("/by-profile", auth.RequireAuth(), h.GetPlaylistsByProfile)
	// anonymous viewers can read public and unlisted playlists
	g.GET("/:playlistId", auth.IsAuth(), h.GetTracks)
}

type createPlaylistReq struct {
	Name           string   `json:"name" binding:"required"`
	Description    string   `json:"description"`
	InitialTrackID string   `json:"initialTrackId"`
	Tags           []string `json:"tags"`
	Category       string   `json:"category"`
	Privacy        string   `json:"privacy"`
	Draft          bool     `json:"draft"`
}

type updatePlaylistReq struct {
	ID          string    `json:"id" binding:"required"`
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
	Category    *string   `json:"category"`
	Privacy     *string   `json:"privacy"`
	Draft       *bool     `json:"draft"`
}

type trackMembershipReq struct {
	ID      string `json:"id" binding:"required"`
	TrackID string `json:"trackId" binding:"required"`
}

type reorderTracksReq struct {
	ID     string   `json:"id" binding:"required"`
	Tracks []string `json:"tracks" binding:"required"`
}

// CreatePlaylist creates a new playlist, optionally seeding it with one track.
// The quick-create path passes draft=true and fills the rest in later.
// POST /playlist/create
func (h *Handler) CreatePlaylist(c *gin.Context) {
	var req createPlaylistReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile := middleware.GetUser(c)
	ownerID, _ := primitive.ObjectIDFromHex(profile.ID)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	pl := models.Playlist{
		Name:        req.Name,
		Description: req.Description,
		Owner:       ownerID,
		Tags:        req.Tags,
		Category:    req.Category,
		Privacy:     req.Privacy,
		IsDraft:     req.Draft,
	}

	if req.InitialTrackID != "" {
		trackID, err := primitive.ObjectIDFromHex(req.InitialTrackID)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid track id!"})
			return
		}
		count, _ := h.db.Collection(models.TracksCollection).CountDocuments(ctx, bson.M{"_id": trackID})
		if count == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Track not found!"})
			return
		}
		pl.Tracks = []primitive.ObjectID{trackID}
	}

	if err := h.store.Create(ctx, &pl); err != nil {
		respondStoreError(c, err, "Failed to create playlist")
		return
	}

	h.events.Publish(ctx, events.EventTypePlaylistCreated, pl.ID.Hex(), pl.ToInfo())
	c.JSON(http.StatusCreated, gin.H{"playlist": pl.ToInfo()})
}

// UpdatePlaylist updates playlist metadata. Nil fields are left untouched.
// PATCH /playlist
func (h *Handler) UpdatePlaylist(c *gin.Context) {
	var req updatePlaylistReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mutate(c, req.ID, func(pl *models.Playlist) error {
		if req.Name != nil {
			pl.Name = *req.Name
		}
		if req.Description != nil {
			pl.Description = *req.Description
		}
		if req.Tags != nil {
			pl.Tags = *req.Tags
		}
		if req.Category != nil {
			pl.Category = *req.Category
		}
		if req.Privacy != nil {
			pl.Privacy = *req.Privacy
		}
		if req.Draft != nil {
			pl.IsDraft = *req.Draft
		}
		return nil
	})
}

// AddTrack appends a track to the playlist. Duplicates are allowed; the same
// track can appear at several positions.
// POST /playlist/tracks
func (h *Handler) AddTrack(c *gin.Context) {
	var req trackMembershipReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trackID, err := primitive.ObjectIDFromHex(req.TrackID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid track id!"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	count, _ := h.db.Collection(models.TracksCollection).CountDocuments(ctx, bson.M{"_id": trackID})
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Track not found!"})
		return
	}

	h.mutate(c, req.ID, func(pl *models.Playlist) error {
		pl.Tracks = append(pl.Tracks, trackID)
		return nil
	})
}

// RemoveTrack removes the first occurrence of a track from the playlist.
// DELETE /playlist/tracks?playlistId=&trackId=
func (h *Handler) RemoveTrack(c *gin.Context) {
	trackID, err := primitive.ObjectIDFromHex(c.Query("trackId"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid track id!"})
		return
	}

	h.mutate(c, c.Query("playlistId"), func(pl *models.Playlist) error {
		idx := slices.Index(pl.Tracks, trackID)
		if idx < 0 {
			return errTrackNotInPlaylist
		}
		pl.Tracks = append(pl.Tracks[:idx], pl.Tracks[idx+1:]...)
		return nil
	})
}

// ReorderTracks replaces the playlist's track order. The new order must be a
// permutation of the current membership; adding or dropping tracks goes
// through the dedicated endpoints.
// PUT /playlist/tracks
func (h *Handler) ReorderTracks(c *gin.Context) {
	var req reorderTracksReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ordered := make([]primitive.ObjectID, 0, len(req.Tracks))
	for _, raw := range req.Tracks {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid track id!"})
			return
		}
		ordered = append(ordered, id)
	}

	h.mutate(c, req.ID, func(pl *models.Playlist) error {
		if !samePermutation(pl.Tracks, ordered) {
			return errBadReorder
		}
		pl.Tracks = ordered
		return nil
	})
}

// UploadCover uploads a playlist cover image to Cloudinary.
// POST /playlist/cover (multipart: id, cover)
func (h *Handler) UploadCover(c *gin.Context) {
	file, _, err := c.Request.FormFile("cover")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Cover image is missing!"})
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	result, err := h.cloud.UploadCover(ctx, file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload cover"})
		return
	}

	h.mutate(c, c.PostForm("id"), func(pl *models.Playlist) error {
		if pl.CoverImage != nil && pl.CoverImage.PublicID != "" {
			h.cloud.DestroyImage(ctx, pl.CoverImage.PublicID) //nolint:errcheck
		}
		pl.CoverImage = &models.CoverImage{URL: result.URL, PublicID: result.PublicID}
		return nil
	})
}

// RemovePlaylist deletes a playlist owned by the current user.
// DELETE /playlist?playlistId=
func (h *Handler) RemovePlaylist(c *gin.Context) {
	plID, err := primitive.ObjectIDFromHex(c.Query("playlistId"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid playlist id!"})
		return
	}

	profile := middleware.GetUser(c)
	ownerID, _ := primitive.ObjectIDFromHex(profile.ID)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.store.Delete(ctx, plID, ownerID); err != nil {
		respondStoreError(c, err, "Failed to delete playlist")
		return
	}

	h.events.Publish(ctx, events.EventTypePlaylistDeleted, plID.Hex(), nil)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetPlaylistsByProfile returns the current user's playlists, drafts included.
// GET /playlist/by-profile
func (h *Handler) GetPlaylistsByProfile(c *gin.Context) {
	profile := middleware.GetUser(c)
	ownerID, _ := primitive.ObjectIDFromHex(profile.ID)

	pg := utils.ParsePagination(c.Query("limit"), c.Query("pageNumber"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSkip(pg.Skip).
		SetLimit(pg.Limit).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := h.db.Collection(models.PlaylistsCollection).Find(ctx, bson.M{"owner": ownerID}, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch playlists"})
		return
	}
	defer cursor.Close(ctx)

	var items []models.Playlist
	cursor.All(ctx, &items) //nolint:errcheck

	result := make([]models.PlaylistInfo, 0, len(items))
	for i := range items {
		result = append(result, items[i].ToInfo())
	}
	c.JSON(http.StatusOK, gin.H{"playlists": result})
}

// GetTracks returns the tracks inside a playlist in playback order, with
// populated track and owner info.
// GET /playlist/:playlistId
func (h *Handler) GetTracks(c *gin.Context) {
	plID, err := primitive.ObjectIDFromHex(c.Param("playlistId"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid playlist id!"})
		return
	}

	var viewerID primitive.ObjectID
	if profile := middleware.GetUser(c); profile != nil {
		viewerID, _ = primitive.ObjectIDFromHex(profile.ID)
	}

	pg := utils.ParsePagination(c.Query("limit"), c.Query("pageNumber"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	pipeline := buildPlaylistTracksPipeline(plID, viewerID, pg.Skip, pg.Limit)

	cursor, err := h.db.Collection(models.PlaylistsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch playlist"})
		return
	}
	defer cursor.Close(ctx)

	var results []bson.M
	cursor.All(ctx, &results) //nolint:errcheck

	if len(results) == 0 {
		c.JSON(http.StatusOK, gin.H{"list": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": results[0]})
}

// mutate runs a read-modify-write cycle through the store, which recomputes
// the aggregates and stamps activity before committing, and answers with the
// committed document.
func (h *Handler) mutate(c *gin.Context, rawID string, fn func(*models.Playlist) error) {
	plID, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid playlist id!"})
		return
	}

	profile := middleware.GetUser(c)
	ownerID, _ := primitive.ObjectIDFromHex(profile.ID)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	pl, err := h.store.Update(ctx, plID, func(pl *models.Playlist) error {
		if pl.Owner != ownerID {
			return ErrNotFound
		}
		return fn(pl)
	})
	if err != nil {
		respondStoreError(c, err, "Failed to update playlist")
		return
	}

	h.events.Publish(ctx, events.EventTypePlaylistUpdated, pl.ID.Hex(), pl.ToInfo())
	c.JSON(http.StatusOK, gin.H{"playlist": pl.ToInfo()})
}

var (
	errTrackNotInPlaylist = errors.New("track is not in the playlist")
	errBadReorder         = errors.New("reorder must keep the same tracks")
)

func respondStoreError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Playlist not found!"})
	case errors.Is(err, errTrackNotInPlaylist):
		c.JSON(http.StatusNotFound, gin.H{"error": "Track is not in the playlist!"})
	case errors.Is(err, errBadReorder):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Reorder must keep the same tracks!"})
	case errors.Is(err, ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Playlist was modified concurrently, please retry."})
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidField):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func samePermutation(a, b []primitive.ObjectID) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[primitive.ObjectID]int, len(a))
	for _, id := range a {
		counts[id]++
	}
	for _, id := range b {
		counts[id]--
		if counts[id] < 0 {
			return false
		}
	}
	return true
}

// buildPlaylistTracksPipeline creates the aggregation pipeline for playlist
// track population. Private playlists are only visible to their owner.
func buildPlaylistTracksPipeline(plID, viewerID primitive.ObjectID, skip, limit int64) mongo.Pipeline {
	matchFilter := bson.D{
		{Key: "_id", Value: plID},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "owner", Value: viewerID}},
			bson.D{{Key: "privacy", Value: bson.D{{Key: "$ne", Value: "private"}}}},
		}},
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: matchFilter}},
		{{Key: "$project", Value: bson.D{
			{Key: "tracks", Value: bson.D{
				{Key: "$slice", Value: bson.A{"$tracks", skip, limit}},
			}},
			{Key: "name", Value: "$name"},
			{Key: "trackCount", Value: "$trackCount"},
			{Key: "totalDuration", Value: "$totalDuration"},
		}}},
		{{Key: "$unwind", Value: "$tracks"}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "tracks"},
			{Key: "localField", Value: "tracks"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "trackInfo"},
		}}},
		{{Key: "$unwind", Value: "$trackInfo"}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "users"},
			{Key: "localField", Value: "trackInfo.owner"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "userInfo"},
		}}},
		{{Key: "$unwind", Value: "$userInfo"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "name", Value: "$name"},
				{Key: "id", Value: "$_id"},
				{Key: "trackCount", Value: "$trackCount"},
				{Key: "totalDuration", Value: "$totalDuration"},
			}},
			{Key: "tracks", Value: bson.D{{Key: "$push", Value: bson.D{
				{Key: "id", Value: "$trackInfo._id"},
				{Key: "title", Value: "$trackInfo.title"},
				{Key: "about", Value: "$trackInfo.about"},
				{Key: "file", Value: "$trackInfo.file.url"},
				{Key: "poster", Value: "$trackInfo.poster.url"},
				{Key: "duration", Value: "$trackInfo.duration"},
				{Key: "category", Value: "$trackInfo.category"},
				{Key: "owner", Value: bson.D{
					{Key: "name", Value: "$userInfo.name"},
					{Key: "id", Value: "$userInfo._id"},
				}},
			}}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "id", Value: "$_id.id"},
			{Key: "name", Value: "$_id.name"},
			{Key: "trackCount", Value: "$_id.trackCount"},
			{Key: "totalDuration", Value: "$_id.totalDuration"},
			{Key: "tracks", Value: "$$ROOT.tracks"},
		}}},
	}
}
