// Package router maps paths to routes and runs guards before every navigation.
//
// Routes form a tree; a child's path is relative to its parent unless it
// starts with "/". Resolving a path yields a [Location] whose Matched chain
// lists every route from the root to the leaf, so a guard can ask whether any
// route along the way is protected.
//
// Guards return [Allow] or [Redirect]. A redirect abandons the remaining
// guards and restarts navigation at the new target, replacing rather than
// pushing history.
package router
