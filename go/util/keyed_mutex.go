package util

import "sync"

// KeyedMutex provides one mutex per string key. Mutexes for keys nobody holds
// or waits on are released, so the set of keys may be unbounded.
type KeyedMutex struct {
	mutex sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mutex sync.Mutex
	refs  int
}

// NewKeyedMutex returns a new KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: map[string]*keyedLock{},
	}
}

// Lock blocks until the mutex for key is held. The returned func releases it.
func (k *KeyedMutex) Lock(key string) func() {
	l := k.acquireRef(key)
	l.mutex.Lock()
	return func() {
		l.mutex.Unlock()
		k.releaseRef(key)
	}
}

// TryLock acquires the mutex for key if nobody else holds it. ok is false if
// the key is already locked, in which case unlock is nil.
func (k *KeyedMutex) TryLock(key string) (unlock func(), ok bool) {
	l := k.acquireRef(key)
	if !l.mutex.TryLock() {
		k.releaseRef(key)
		return nil, false
	}
	return func() {
		l.mutex.Unlock()
		k.releaseRef(key)
	}, true
}

func (k *KeyedMutex) acquireRef(key string) *keyedLock {
	k.mutex.Lock()
	defer k.mutex.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	return l
}

func (k *KeyedMutex) releaseRef(key string) {
	k.mutex.Lock()
	defer k.mutex.Unlock()
	l := k.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

// len returns the number of keys currently tracked.
func (k *KeyedMutex) len() int {
	k.mutex.Lock()
	defer k.mutex.Unlock()
	return len(k.locks)
}
