// Package main provides the player control CLI.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/mybeats/internal/api/connect"
	"github.com/osa030/mybeats/internal/app/notification"
	"github.com/osa030/mybeats/internal/domain/song"
)

var (
	app    = kingpin.New("mybeats-playercli", "mybeats player control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Control token").Envar("MYBEATS_CONTROL_TOKEN").String()

	// transport commands
	statusCmd  = app.Command("status", "Show the player state")
	playCmd    = app.Command("play", "Resume playback")
	pauseCmd   = app.Command("pause", "Pause playback")
	stopCmd    = app.Command("stop", "Stop playback")
	nextCmd    = app.Command("next", "Skip to the next song")
	prevCmd    = app.Command("prev", "Go to the previous song")
	seekCmd    = app.Command("seek", "Seek to a position")
	seekSec    = seekCmd.Arg("seconds", "Position in seconds").Required().Float64()
	skipCmd    = app.Command("skip", "Move the position by an offset")
	skipSec    = skipCmd.Arg("seconds", "Offset in seconds (negative rewinds)").Required().Float64()
	shuffleCmd = app.Command("shuffle", "Toggle shuffle")
	repeatCmd  = app.Command("repeat", "Cycle the repeat mode")

	// song command
	songCmd    = app.Command("song", "Play a song")
	songArtist = songCmd.Arg("artist", "Artist name").Required().String()
	songAlbum  = songCmd.Arg("album", "Album name").Required().String()
	songID     = songCmd.Arg("id", "Song ID").Required().String()

	// queue commands
	queueCmd       = app.Command("queue", "Manage the play queue")
	queueListCmd   = queueCmd.Command("list", "List queued songs")
	queueAddCmd    = queueCmd.Command("add", "Append a song to the queue")
	queueAddArtist = queueAddCmd.Arg("artist", "Artist name").Required().String()
	queueAddAlbum  = queueAddCmd.Arg("album", "Album name").Required().String()
	queueAddID     = queueAddCmd.Arg("id", "Song ID").Required().String()
	queueNextCmd   = queueCmd.Command("next", "Queue a song to play next")
	queueNxtArtist = queueNextCmd.Arg("artist", "Artist name").Required().String()
	queueNxtAlbum  = queueNextCmd.Arg("album", "Album name").Required().String()
	queueNxtID     = queueNextCmd.Arg("id", "Song ID").Required().String()
	queueRemoveCmd = queueCmd.Command("remove", "Remove a queued song")
	queueRemoveIdx = queueRemoveCmd.Arg("index", "Queue position (0-based)").Required().Int()
	queueClearCmd  = queueCmd.Command("clear", "Clear the queue")

	// favorites command
	favCmd  = app.Command("fav", "Toggle a favorite")
	favType = favCmd.Arg("type", "songs, albums or artists").Required().String()
	favID   = favCmd.Arg("id", "Song ID, album or artist name").Required().String()

	// playlist commands
	playlistCmd         = app.Command("playlist", "Manage playlists")
	playlistListCmd     = playlistCmd.Command("list", "List playlists")
	playlistCreateCmd   = playlistCmd.Command("create", "Create a playlist")
	playlistCreateName  = playlistCreateCmd.Arg("name", "Playlist name").Required().String()
	playlistCreateDesc  = playlistCreateCmd.Arg("description", "Description").String()
	playlistAddCmd      = playlistCmd.Command("add", "Add a song to a playlist")
	playlistAddID       = playlistAddCmd.Arg("playlist-id", "Playlist ID").Required().String()
	playlistAddArtist   = playlistAddCmd.Arg("artist", "Artist name").Required().String()
	playlistAddAlbum    = playlistAddCmd.Arg("album", "Album name").Required().String()
	playlistAddSong     = playlistAddCmd.Arg("song-id", "Song ID").Required().String()
	playlistRemoveCmd   = playlistCmd.Command("remove", "Remove a song from a playlist")
	playlistRemoveID    = playlistRemoveCmd.Arg("playlist-id", "Playlist ID").Required().String()
	playlistRemoveSong  = playlistRemoveCmd.Arg("song-id", "Song ID").Required().String()
	playlistDeleteCmd   = playlistCmd.Command("delete", "Delete a playlist")
	playlistDeleteID    = playlistDeleteCmd.Arg("playlist-id", "Playlist ID").Required().String()
	playlistDeleteForce = playlistDeleteCmd.Flag("yes", "Confirm deletion").Short('y').Bool()
	playlistPlayCmd     = playlistCmd.Command("play", "Play a playlist")
	playlistPlayID      = playlistPlayCmd.Arg("playlist-id", "Playlist ID").Required().String()

	// collection commands
	playAllCmd       = app.Command("play-all", "Play the whole library shuffled")
	playFavoritesCmd = app.Command("play-favorites", "Play all favorite songs")
	playAlbumCmd     = app.Command("play-album", "Play an album")
	playAlbumArtist  = playAlbumCmd.Arg("artist", "Artist name").Required().String()
	playAlbumName    = playAlbumCmd.Arg("album", "Album name").Required().String()
	playArtistCmd    = app.Command("play-artist", "Play every song by an artist")
	playArtistName   = playArtistCmd.Arg("artist", "Artist name").Required().String()

	// library commands
	historyCmd  = app.Command("history", "List recently played songs")
	searchCmd   = app.Command("search", "Search the library")
	searchQuery = searchCmd.Arg("query", "Search text").Required().String()
	recentCmd   = app.Command("recent", "List recent searches")
	watchCmd    = app.Command("watch", "Watch player notifications")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Create client
	client := apiconnect.NewClient(http.DefaultClient, *server, *token)

	ctx := context.Background()

	// Execute command
	switch command {
	case statusCmd.FullCommand():
		status(ctx, client)
	case playCmd.FullCommand():
		control(client.Play(ctx))
	case pauseCmd.FullCommand():
		control(client.Pause(ctx))
	case stopCmd.FullCommand():
		control(client.Stop(ctx))
	case nextCmd.FullCommand():
		control(client.Next(ctx))
	case prevCmd.FullCommand():
		control(client.Previous(ctx))
	case seekCmd.FullCommand():
		control(client.Seek(ctx, *seekSec))
	case skipCmd.FullCommand():
		control(client.Skip(ctx, *skipSec))
	case shuffleCmd.FullCommand():
		resp, err := client.ToggleShuffle(ctx)
		exitOnError(err)
		fmt.Printf("Shuffle: %v\n", resp.Shuffle)
	case repeatCmd.FullCommand():
		resp, err := client.CycleRepeat(ctx)
		exitOnError(err)
		fmt.Printf("Repeat: %s\n", resp.Repeat)
	case songCmd.FullCommand():
		dispatch(ctx, client, "play-song", ref(*songArtist, *songAlbum, *songID), "")
	case queueListCmd.FullCommand():
		resp, err := client.ListQueue(ctx)
		exitOnError(err)
		printSongs("Queue", resp.Songs)
	case queueAddCmd.FullCommand():
		dispatch(ctx, client, "add-queue", ref(*queueAddArtist, *queueAddAlbum, *queueAddID), "")
	case queueNextCmd.FullCommand():
		dispatch(ctx, client, "play-next", ref(*queueNxtArtist, *queueNxtAlbum, *queueNxtID), "")
	case queueRemoveCmd.FullCommand():
		_, err := client.Dispatch(ctx, &apiconnect.DispatchRequest{Action: "remove-queue", QueueIndex: *queueRemoveIdx})
		exitOnError(err)
		fmt.Println("Removed from queue")
	case queueClearCmd.FullCommand():
		exitOnError(client.ClearQueue(ctx))
		fmt.Println("Queue cleared")
	case favCmd.FullCommand():
		resp, err := client.ToggleFavorite(ctx, *favType, *favID)
		exitOnError(err)
		if resp.Favorite {
			fmt.Printf("Added to favorite %s: %s\n", resp.Type, *favID)
		} else {
			fmt.Printf("Removed from favorite %s: %s\n", resp.Type, *favID)
		}
	case playlistListCmd.FullCommand():
		resp, err := client.ListPlaylists(ctx)
		exitOnError(err)
		printPlaylists(resp)
	case playlistCreateCmd.FullCommand():
		resp, err := client.CreatePlaylist(ctx, *playlistCreateName, *playlistCreateDesc)
		exitOnError(err)
		printPlaylists(resp)
	case playlistAddCmd.FullCommand():
		dispatch(ctx, client, "add-playlist", ref(*playlistAddArtist, *playlistAddAlbum, *playlistAddSong), *playlistAddID)
	case playlistRemoveCmd.FullCommand():
		dispatch(ctx, client, "remove-from-playlist", apiconnect.SongRef{ID: *playlistRemoveSong}, *playlistRemoveID)
	case playlistDeleteCmd.FullCommand():
		if !*playlistDeleteForce {
			fmt.Println("Refusing to delete without --yes")
			os.Exit(1)
		}
		exitOnError(client.DeletePlaylist(ctx, *playlistDeleteID, true))
		fmt.Println("Playlist deleted")
	case playlistPlayCmd.FullCommand():
		playCollection(ctx, client, &apiconnect.PlayCollectionRequest{Kind: apiconnect.CollectionPlaylist, PlaylistID: *playlistPlayID})
	case playAllCmd.FullCommand():
		playCollection(ctx, client, &apiconnect.PlayCollectionRequest{Kind: apiconnect.CollectionAll})
	case playFavoritesCmd.FullCommand():
		playCollection(ctx, client, &apiconnect.PlayCollectionRequest{Kind: apiconnect.CollectionFavorites})
	case playAlbumCmd.FullCommand():
		playCollection(ctx, client, &apiconnect.PlayCollectionRequest{Kind: apiconnect.CollectionAlbum, Artist: *playAlbumArtist, Album: *playAlbumName})
	case playArtistCmd.FullCommand():
		playCollection(ctx, client, &apiconnect.PlayCollectionRequest{Kind: apiconnect.CollectionArtist, Artist: *playArtistName})
	case historyCmd.FullCommand():
		resp, err := client.ListHistory(ctx)
		exitOnError(err)
		printSongs("History", resp.Songs)
	case searchCmd.FullCommand():
		search(ctx, client, *searchQuery)
	case recentCmd.FullCommand():
		// An empty query matches nothing and is not remembered
		resp, err := client.Search(ctx, "")
		exitOnError(err)
		fmt.Println("Recent searches:")
		for _, q := range resp.Recent {
			fmt.Printf("  %s\n", q)
		}
	case watchCmd.FullCommand():
		watch(ctx, client)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func ref(artist, album, id string) apiconnect.SongRef {
	return apiconnect.SongRef{Artist: artist, Album: album, ID: id}
}

func status(ctx context.Context, client *apiconnect.Client) {
	resp, err := client.Status(ctx)
	exitOnError(err)

	printState(&resp.State)
	fmt.Printf("  Queue: %d songs\n", resp.QueueSize)
	fmt.Printf("  History: %d songs\n", resp.HistorySize)
}

func control(resp *apiconnect.ControlResponse, err error) {
	exitOnError(err)

	if resp.Success {
		fmt.Printf("Success: %s\n", resp.Message)
	} else {
		fmt.Printf("Rejected: %s\n", resp.Message)
	}
	printState(&resp.State)
}

func dispatch(ctx context.Context, client *apiconnect.Client, action string, s apiconnect.SongRef, playlistID string) {
	control(client.Dispatch(ctx, &apiconnect.DispatchRequest{
		Action:     action,
		Song:       s,
		PlaylistID: playlistID,
	}))
}

func playCollection(ctx context.Context, client *apiconnect.Client, req *apiconnect.PlayCollectionRequest) {
	control(client.PlayCollection(ctx, req))
}

func search(ctx context.Context, client *apiconnect.Client, query string) {
	resp, err := client.Search(ctx, query)
	exitOnError(err)

	if resp.Results.Empty() {
		fmt.Printf("No results for %q\n", query)
		return
	}
	if len(resp.Results.Artists) > 0 {
		fmt.Println("Artists:")
		for _, a := range resp.Results.Artists {
			fmt.Printf("  %s\n", a)
		}
	}
	if len(resp.Results.Albums) > 0 {
		t := newTable("Albums")
		t.AppendHeader(table.Row{"Artist", "Album", "Year"})
		for _, a := range resp.Results.Albums {
			t.AppendRow(table.Row{a.Artist, a.Album, a.Year})
		}
		t.Render()
	}
	if len(resp.Results.Songs) > 0 {
		printSongs("Songs", resp.Results.Songs)
	}
}

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func printSongs(title string, songs []song.Song) {
	t := newTable(fmt.Sprintf("%s (%d)", title, len(songs)))
	t.AppendHeader(table.Row{"#", "ID", "Title", "Artist", "Album", "Time"})
	for i, s := range songs {
		t.AppendRow(table.Row{i, s.ID, s.Title, s.Artist, s.Album, s.Duration})
	}
	t.Render()
}

func printPlaylists(resp *apiconnect.PlaylistsResponse) {
	t := newTable(fmt.Sprintf("Playlists (%d)", len(resp.Playlists)))
	t.AppendHeader(table.Row{"ID", "Name", "Songs", "Created", "Description"})
	for _, p := range resp.Playlists {
		t.AppendRow(table.Row{p.ID, p.Name, len(p.Songs), p.Created.Format(time.DateOnly), p.Description})
	}
	t.Render()
}

func formatPlaying(playing bool) string {
	if playing {
		return "▶️  Playing"
	}
	return "⏸  Paused"
}

func printState(st *notification.PlayerState) {
	fmt.Println("\nPlayer State:")
	if st.SongID == "" {
		fmt.Println("  Nothing loaded")
	} else {
		fmt.Printf("  Song: %s [%s]\n", st.Song, st.SongID)
		fmt.Printf("  Artist: %s\n", st.Artist)
		fmt.Printf("  Album: %s\n", st.Album)
		fmt.Printf("  Cover: %s\n", st.Cover)
		fmt.Printf("  State: %s\n", formatPlaying(st.IsPlaying))
		fmt.Printf("  Position: %s / %s\n", song.FormatTime(st.CurrentTime), song.FormatTime(st.TotalTime))
	}
	fmt.Printf("  Shuffle: %v\n", st.Shuffle)
	fmt.Printf("  Repeat: %s\n", st.Repeat)
}

func watch(ctx context.Context, client *apiconnect.Client) {
	fmt.Println("Watching notifications. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nUnsubscribing...")
		os.Exit(0)
	}()

	err := client.Subscribe(ctx, func(n *notification.Notification) error {
		printNotification(n)
		return nil
	})
	if err != nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printNotification(n *notification.Notification) {
	// Print sequence number
	fmt.Printf("\n[Sequence: %d] ", n.SequenceNo)

	// Print event type header
	switch n.Type {
	case notification.TypeInitialState:
		fmt.Println("=== INITIAL STATE ===")
	case notification.TypeStateChange:
		fmt.Println("=== STATE CHANGED ===")
	case notification.TypeToast:
		fmt.Println("=== TOAST ===")
	case notification.TypeFavoriteChanged:
		fmt.Println("=== FAVORITE CHANGED ===")
	case notification.TypeQueueChanged:
		fmt.Println("=== QUEUE CHANGED ===")
	default:
		fmt.Printf("=== UNKNOWN EVENT (%v) ===\n", n.Type)
	}

	if n.State != nil {
		printState(n.State)
	}
	if n.Toast != nil {
		fmt.Printf("  [%s] %s\n", n.Toast.Kind, n.Toast.Message)
	}
	if n.Favorite != nil {
		fmt.Printf("  %s %s: favorite=%v\n", n.Favorite.Kind, n.Favorite.ID, n.Favorite.Favorite)
	}
	if n.Type == notification.TypeQueueChanged || n.Type == notification.TypeInitialState {
		fmt.Printf("  Queue: %d songs\n", n.QueueSize)
	}
	fmt.Println()
}
