package blist

// layout mirrors the sibling order the presentation layer holds
type layout struct {
	kids map[RowHandle][]RowHandle
}

func newLayout() *layout {
	return &layout{kids: make(map[RowHandle][]RowHandle)}
}

func (l *layout) children(parent RowHandle) []RowHandle {
	return l.kids[parent]
}

// insert places h after the sibling after, or first when after is 0
func (l *layout) insert(parent, after, h RowHandle) {
	list := l.kids[parent]
	at := 0
	if after != 0 {
		for i, c := range list {
			if c == after {
				at = i + 1
				break
			}
		}
	}
	list = append(list, 0)
	copy(list[at+1:], list[at:])
	list[at] = h
	l.kids[parent] = list
}

func (l *layout) remove(parent, h RowHandle) {
	list := l.kids[parent]
	for i, c := range list {
		if c == h {
			l.kids[parent] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// predecessor returns the sibling before h, or 0 when h is first
func (l *layout) predecessor(parent, h RowHandle) RowHandle {
	var prev RowHandle
	for _, c := range l.kids[parent] {
		if c == h {
			return prev
		}
		prev = c
	}
	return 0
}

func (l *layout) index(parent, h RowHandle) int {
	for i, c := range l.kids[parent] {
		if c == h {
			return i
		}
	}
	return -1
}

func (l *layout) drop(parent RowHandle) {
	delete(l.kids, parent)
}
