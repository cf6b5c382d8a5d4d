package models

import "time"

// User is an account row. The five counters are derived state and are only
// written by the social store.
type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email,omitempty"`
	Username         string    `json:"username"`
	PasswordHash     string    `json:"-"`
	Name             string    `json:"name"`
	Bio              string    `json:"bio"`
	AvatarURL        string    `json:"avatarUrl"`
	PostsCount       int64     `json:"postsCount"`
	TotalLikes       int64     `json:"totalLikes"`
	FollowersCount   int64     `json:"followersCount"`
	FollowingCount   int64     `json:"followingCount"`
	CountriesVisited int64     `json:"countriesVisited"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Profile is a user as seen by a viewer. IsFollowing is nil for anonymous
// viewers and for the user's own profile.
type Profile struct {
	User
	IsFollowing *bool `json:"isFollowing,omitempty"`
}

type Post struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"authorId"`
	Author    string    `json:"author,omitempty"`
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	ImageURL  string    `json:"imageUrl"`
	Location  *string   `json:"location"`
	Lat       *float64  `json:"lat"`
	Lng       *float64  `json:"lng"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     int64     `json:"likes"`
	LikedByMe bool      `json:"likedByMe"`
}

// UserSummary is the row shape of follower and following listings.
type UserSummary struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

type LeaderboardEntry struct {
	ID               int64  `json:"id"`
	Username         string `json:"username"`
	Name             string `json:"name"`
	AvatarURL        string `json:"avatarUrl"`
	PostsCount       int64  `json:"postsCount"`
	TotalLikes       int64  `json:"totalLikes"`
	FollowersCount   int64  `json:"followersCount"`
	FollowingCount   int64  `json:"followingCount"`
	CountriesVisited int64  `json:"countriesVisited"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
