// Package ffmpeg wraps the ffmpeg binary for the two container operations a
// run needs: pulling a mono 16 kHz PCM track out of the input video for
// speech-to-text, and remuxing the video with soft SubRip tracks attached.
//
// When an extractor has a prober it inspects the video first, fails fast if
// there is no audio, and maps the dialogue stream chosen by media/audio.
//
// Muxing copies the video and audio streams untouched and writes to a hidden
// temp file beside the destination, renaming it into place only on success.
package ffmpeg
