// Package engine provides the core game logic for Riddle Match.
//
// The engine package implements the game mechanics including:
//   - Riddle catalogs and their validation
//   - Fisher-Yates shuffling of riddles and icon cards
//   - The game session state machine (reveal, countdown, match, nudge)
//   - Snapshots handed to a Renderer after every state change
//
// Core Types:
//
// The Engine interface defines the gesture entry points of a game,
// implemented by GameSession. Catalog is the riddle deck loaded from JSON,
// and GameState is the snapshot a presentation layer renders.
//
// Usage:
//
//	game, err := engine.NewGameSession(engine.DefaultCatalog(),
//		engine.WithRenderer(engine.RenderFunc(func(s *engine.GameState) {
//			log.Printf("%s: %s", s.Phase, s.Status)
//		})),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	game.Start()
//	game.Reveal()
//	outcome := game.AttemptMatch("Citizen")
//
// Game Rules:
//
// A riddle is presented face down. Tapping the card reveals it and starts a
// 20 second countdown; the player then drags the icon card bearing the
// answer onto the riddle. A correct match scores a point and, after a short
// pause, presents the next riddle. The game ends when every riddle has been
// matched, or as soon as a countdown runs out. A riddle left face down for
// 10 seconds raises a nudge hint.
package engine
