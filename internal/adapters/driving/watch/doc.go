// Package watch keeps the index in step with a directory tree.
//
// A Watcher listens for fsnotify events below a root directory, collects
// the changed paths until the tree has been quiet for the debounce
// interval, then replaces the chunks of changed files and removes the
// chunks of deleted ones. Hidden files and directories are ignored, as
// are files no normaliser supports.
package watch
