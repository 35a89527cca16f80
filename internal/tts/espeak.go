// Package tts renders text through espeak-ng. Render is not safe for
// concurrent use; the speech gate is its only caller.
package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

static int
tts_init(void)
{
	int rate = espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0);
	return rate > 0 ? 0 : -1;
}

static int
tts_say(const char *text, const char *voice, int wpm)
{
	if (!text)
	{ return -1; }

	if (voice && *voice)
	{
		if (espeak_SetVoiceByName(voice) != EE_OK)
		{
			espeak_VOICE specs = { .languages = voice };
			espeak_SetVoiceByProperties(&specs);
		}
	}
	if (wpm > 0)
	{ espeak_SetParameter(espeakRATE, wpm, 0); }

	if (espeak_Synth(text, 0, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL) != EE_OK)
	{ return -2; }
	espeak_Synchronize();
	return 0;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

type Espeak struct {
	// Voice is an espeak-ng voice name or language code; "en" when empty.
	Voice string
	// Rate in words per minute; the espeak default when zero.
	Rate int

	once    sync.Once
	ready   bool
	initErr error
}

func NewEspeak(voice string, rate int) *Espeak {
	if voice == "" {
		voice = "en"
	}
	return &Espeak{Voice: voice, Rate: rate}
}

func (e *Espeak) Render(text string) error {
	if text == "" {
		return nil
	}

	e.once.Do(func() {
		if C.tts_init() != 0 {
			e.initErr = errors.New("espeak-ng initialization failed")
			return
		}
		e.ready = true
	})
	if e.initErr != nil {
		return e.initErr
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	cvoice := C.CString(e.Voice)
	defer C.free(unsafe.Pointer(cvoice))

	if rc := C.tts_say(ctext, cvoice, C.int(e.Rate)); rc != 0 {
		return fmt.Errorf("espeak synth failed: %d", int(rc))
	}
	return nil
}

func (e *Espeak) Close() {
	if e.ready {
		C.espeak_Terminate()
	}
}
