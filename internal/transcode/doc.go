// Package transcode converts a script archive into a manifest plus one file
// per script, and back.
//
// Export and Import are pure: they take bytes and return bytes, leaving all
// filesystem access to the caller (see internal/project). Both walk slots
// sequentially in archive order. Filenames are resolved for every slot
// before any content is decompressed, and the manifest is encoded exactly
// once per run.
//
// # Errors
//
// Archive and payload decoding failures (archive.ErrCorruptArchive,
// entry.ErrCorruptPayload) and manifest failures
// (manifest.ErrMalformedManifest) abort the run. A script file named by
// the manifest but absent from the scripts directory does not: Import
// records a Warning wrapping ErrMissingSourceFile, substitutes empty
// content for that slot, and continues.
package transcode
