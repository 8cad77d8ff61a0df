// Package services contains the typed application services the terminal
// client and any other front end build their pages on: the kindergarten
// meal/inventory tracker, the surplus-food marketplace and the expense
// tracker.
//
// Each service reads through a query.Cache and sends writes with
// Cache.Mutate, naming the cache prefixes a write makes stale. Input is
// checked locally first; a failed check returns a ValidationError carrying
// FieldErrors and never reaches the network.
package services
