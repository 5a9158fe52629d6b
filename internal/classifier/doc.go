// Package classifier assigns a free-form category to a ticket description by
// asking an external text-generation model to pick one of the categories
// already in use or to mint a new one.
package classifier
