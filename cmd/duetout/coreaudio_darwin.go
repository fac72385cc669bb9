//go:build darwin && cgo

package main

/*
#cgo LDFLAGS: -framework CoreAudio -framework CoreFoundation

#include <CoreAudio/CoreAudio.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdlib.h>
#include <string.h>

static OSStatus duetListDevices(AudioObjectID **out, UInt32 *count) {
	AudioObjectPropertyAddress addr = {
		kAudioHardwarePropertyDevices,
		kAudioObjectPropertyScopeGlobal,
		kAudioObjectPropertyElementMain,
	};

	UInt32 size = 0;
	OSStatus st = AudioObjectGetPropertyDataSize(kAudioObjectSystemObject, &addr, 0, NULL, &size);
	if (st != noErr) {
		return st;
	}

	AudioObjectID *ids = (AudioObjectID *)malloc(size);
	if (ids == NULL) {
		return kAudio_MemFullError;
	}

	st = AudioObjectGetPropertyData(kAudioObjectSystemObject, &addr, 0, NULL, &size, ids);
	if (st != noErr) {
		free(ids);
		return st;
	}

	*out = ids;
	*count = size / sizeof(AudioObjectID);
	return noErr;
}

static OSStatus duetOutputChannels(AudioObjectID dev, UInt32 *channels) {
	AudioObjectPropertyAddress addr = {
		kAudioDevicePropertyStreamConfiguration,
		kAudioObjectPropertyScopeOutput,
		kAudioObjectPropertyElementMain,
	};

	UInt32 size = 0;
	OSStatus st = AudioObjectGetPropertyDataSize(dev, &addr, 0, NULL, &size);
	if (st != noErr) {
		return st;
	}

	AudioBufferList *buffers = (AudioBufferList *)malloc(size);
	if (buffers == NULL) {
		return kAudio_MemFullError;
	}

	st = AudioObjectGetPropertyData(dev, &addr, 0, NULL, &size, buffers);
	if (st != noErr) {
		free(buffers);
		return st;
	}

	UInt32 total = 0;
	for (UInt32 i = 0; i < buffers->mNumberBuffers; i++) {
		total += buffers->mBuffers[i].mNumberChannels;
	}
	free(buffers);

	*channels = total;
	return noErr;
}

// duetCopyStringProperty fetches a CFString property and copies it into a
// caller-provided UTF-8 buffer.
static OSStatus duetCopyStringProperty(AudioObjectID dev, AudioObjectPropertySelector sel, char *buf, size_t buflen) {
	AudioObjectPropertyAddress addr = {
		sel,
		kAudioObjectPropertyScopeGlobal,
		kAudioObjectPropertyElementMain,
	};

	CFStringRef str = NULL;
	UInt32 size = sizeof(str);
	OSStatus st = AudioObjectGetPropertyData(dev, &addr, 0, NULL, &size, &str);
	if (st != noErr) {
		return st;
	}
	if (str == NULL) {
		return kAudioHardwareUnknownPropertyError;
	}

	Boolean ok = CFStringGetCString(str, buf, buflen, kCFStringEncodingUTF8);
	CFRelease(str);
	if (!ok) {
		return kAudioHardwareUnspecifiedError;
	}
	return noErr;
}

static OSStatus duetTransportType(AudioObjectID dev, UInt32 *transport) {
	AudioObjectPropertyAddress addr = {
		kAudioDevicePropertyTransportType,
		kAudioObjectPropertyScopeGlobal,
		kAudioObjectPropertyElementMain,
	};

	UInt32 size = sizeof(*transport);
	return AudioObjectGetPropertyData(dev, &addr, 0, NULL, &size, transport);
}

static OSStatus duetSetDefaultOutput(AudioObjectID dev) {
	AudioObjectPropertyAddress addr = {
		kAudioHardwarePropertyDefaultOutputDevice,
		kAudioObjectPropertyScopeGlobal,
		kAudioObjectPropertyElementMain,
	};

	return AudioObjectSetPropertyData(kAudioObjectSystemObject, &addr, 0, NULL, sizeof(dev), &dev);
}

// duetCreateAggregate builds the aggregate description dictionary and asks the
// HAL to synthesize the device. subUIDs is an array of UTF-8 device UIDs;
// mainUID selects the clock-source sub-device; stacked selects the layout
// where every sub-device carries the full channel set.
static OSStatus duetCreateAggregate(const char *name, const char *uid,
	const char **subUIDs, int subCount, const char *mainUID,
	int stacked, AudioObjectID *out) {

	CFMutableDictionaryRef desc = CFDictionaryCreateMutable(kCFAllocatorDefault, 0,
		&kCFTypeDictionaryKeyCallBacks, &kCFTypeDictionaryValueCallBacks);
	if (desc == NULL) {
		return kAudio_MemFullError;
	}

	CFStringRef cfName = CFStringCreateWithCString(kCFAllocatorDefault, name, kCFStringEncodingUTF8);
	CFStringRef cfUID = CFStringCreateWithCString(kCFAllocatorDefault, uid, kCFStringEncodingUTF8);
	CFStringRef cfMain = CFStringCreateWithCString(kCFAllocatorDefault, mainUID, kCFStringEncodingUTF8);

	CFMutableArrayRef subList = CFArrayCreateMutable(kCFAllocatorDefault, subCount, &kCFTypeArrayCallBacks);
	for (int i = 0; i < subCount; i++) {
		CFMutableDictionaryRef sub = CFDictionaryCreateMutable(kCFAllocatorDefault, 0,
			&kCFTypeDictionaryKeyCallBacks, &kCFTypeDictionaryValueCallBacks);
		CFStringRef cfSub = CFStringCreateWithCString(kCFAllocatorDefault, subUIDs[i], kCFStringEncodingUTF8);
		CFDictionarySetValue(sub, CFSTR(kAudioSubDeviceUIDKey), cfSub);
		CFArrayAppendValue(subList, sub);
		CFRelease(cfSub);
		CFRelease(sub);
	}

	int stackedVal = stacked ? 1 : 0;
	CFNumberRef cfStacked = CFNumberCreate(kCFAllocatorDefault, kCFNumberIntType, &stackedVal);

	CFDictionarySetValue(desc, CFSTR(kAudioAggregateDeviceNameKey), cfName);
	CFDictionarySetValue(desc, CFSTR(kAudioAggregateDeviceUIDKey), cfUID);
	CFDictionarySetValue(desc, CFSTR(kAudioAggregateDeviceSubDeviceListKey), subList);
	CFDictionarySetValue(desc, CFSTR(kAudioAggregateDeviceMainSubDeviceKey), cfMain);
	CFDictionarySetValue(desc, CFSTR(kAudioAggregateDeviceIsStackedKey), cfStacked);

	AudioObjectID created = kAudioObjectUnknown;
	OSStatus st = AudioHardwareCreateAggregateDevice(desc, &created);

	CFRelease(cfStacked);
	CFRelease(subList);
	CFRelease(cfMain);
	CFRelease(cfUID);
	CFRelease(cfName);
	CFRelease(desc);

	if (st == noErr) {
		*out = created;
	}
	return st;
}

static OSStatus duetDestroyAggregate(AudioObjectID dev) {
	return AudioHardwareDestroyAggregateDevice(dev);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

const cfStringBufLen = 512

// coreAudioBackend implements Backend against the CoreAudio HAL.
type coreAudioBackend struct{}

func newPlatformBackend() (Backend, error) {
	return coreAudioBackend{}, nil
}

// osStatusErr wraps a CoreAudio OSStatus so callers get a meaningful error.
type osStatusErr struct {
	op string
	st C.OSStatus
}

func (e osStatusErr) Error() string {
	return fmt.Sprintf("coreaudio %s: OSStatus %d", e.op, int32(e.st))
}

func (coreAudioBackend) DeviceIDs() ([]DeviceID, error) {
	var ids *C.AudioObjectID
	var count C.UInt32

	if st := C.duetListDevices(&ids, &count); st != C.noErr {
		return nil, osStatusErr{op: "list devices", st: st}
	}
	defer C.free(unsafe.Pointer(ids))

	raw := unsafe.Slice(ids, int(count))
	out := make([]DeviceID, len(raw))
	for i, id := range raw {
		out[i] = DeviceID(id)
	}
	return out, nil
}

func (coreAudioBackend) OutputChannels(id DeviceID) (int, error) {
	var channels C.UInt32
	if st := C.duetOutputChannels(C.AudioObjectID(id), &channels); st != C.noErr {
		return 0, osStatusErr{op: "stream configuration", st: st}
	}
	return int(channels), nil
}

func (coreAudioBackend) DeviceName(id DeviceID) (string, error) {
	return copyStringProperty(id, C.kAudioObjectPropertyName, "name")
}

func (coreAudioBackend) DeviceUID(id DeviceID) (string, error) {
	return copyStringProperty(id, C.kAudioDevicePropertyDeviceUID, "uid")
}

func copyStringProperty(id DeviceID, sel C.AudioObjectPropertySelector, what string) (string, error) {
	buf := (*C.char)(C.malloc(cfStringBufLen))
	defer C.free(unsafe.Pointer(buf))

	if st := C.duetCopyStringProperty(C.AudioObjectID(id), sel, buf, cfStringBufLen); st != C.noErr {
		return "", osStatusErr{op: what, st: st}
	}
	return C.GoString(buf), nil
}

func (coreAudioBackend) TransportType(id DeviceID) (uint32, error) {
	var transport C.UInt32
	if st := C.duetTransportType(C.AudioObjectID(id), &transport); st != C.noErr {
		return 0, osStatusErr{op: "transport type", st: st}
	}
	return uint32(transport), nil
}

func (coreAudioBackend) CreateAggregate(spec AggregateSpec) (DeviceID, error) {
	cName := C.CString(spec.Name)
	defer C.free(unsafe.Pointer(cName))
	cUID := C.CString(spec.UID)
	defer C.free(unsafe.Pointer(cUID))
	cMain := C.CString(spec.MainSubDeviceUID)
	defer C.free(unsafe.Pointer(cMain))

	subs := make([]*C.char, len(spec.SubDeviceUIDs))
	for i, uid := range spec.SubDeviceUIDs {
		subs[i] = C.CString(uid)
		defer C.free(unsafe.Pointer(subs[i]))
	}

	var subPtr **C.char
	if len(subs) > 0 {
		subPtr = &subs[0]
	}

	stacked := C.int(0)
	if spec.Stacked {
		stacked = 1
	}

	var created C.AudioObjectID
	st := C.duetCreateAggregate(cName, cUID, subPtr, C.int(len(subs)), cMain, stacked, &created)
	if st != C.noErr {
		return 0, osStatusErr{op: "create aggregate", st: st}
	}
	return DeviceID(created), nil
}

func (coreAudioBackend) DestroyAggregate(id DeviceID) error {
	if st := C.duetDestroyAggregate(C.AudioObjectID(id)); st != C.noErr {
		return osStatusErr{op: "destroy aggregate", st: st}
	}
	return nil
}

func (coreAudioBackend) SetDefaultOutput(id DeviceID) error {
	if st := C.duetSetDefaultOutput(C.AudioObjectID(id)); st != C.noErr {
		return osStatusErr{op: "set default output", st: st}
	}
	return nil
}
