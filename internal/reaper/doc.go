// Package reaper removes containers left behind by earlier runs of the same
// scope and role before a new container is started, and labels new requests
// so that a later run can find them.
//
// A reap is list (forced only), stop (forced only), then a single prune, all
// against the same label filter. There is no lock around these steps: two
// processes reaping the same scope at once can race, and the loser sees a
// not-found EngineError.
package reaper
