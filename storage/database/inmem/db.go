package inmemdb

import (
	"sync"

	"github.com/qazmun/mun/core/application"
	"github.com/qazmun/mun/core/conference"
	"github.com/qazmun/mun/core/news"
	"github.com/qazmun/mun/core/registration"
	"github.com/qazmun/mun/core/user"
)

type (
	// DB is a process-local store. Every table is guarded by its own mutex.
	DB struct {
		user         *userTable
		conference   *conferenceTable
		application  *applicationTable
		news         *newsTable
		registration *registrationTable
	}

	userTable struct {
		mutex    sync.RWMutex
		users    map[string]*user.User
		profiles map[string]*user.Profile
		seq      map[string]int
		next     int
	}

	conferenceTable struct {
		mutex       sync.RWMutex
		conferences map[string]*conference.Conference
		committees  map[string][]conference.Committee // by conference id
		seq         map[string]int
		next        int
	}

	applicationTable struct {
		mutex sync.RWMutex
		table map[string]*application.Application
		seq   map[string]int
		next  int
	}

	newsTable struct {
		mutex sync.RWMutex
		table map[string]*news.Article
		seq   map[string]int
		next  int
	}

	registrationTable struct {
		mutex sync.RWMutex
		table []registration.Registration
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{
			users:    make(map[string]*user.User),
			profiles: make(map[string]*user.Profile),
			seq:      make(map[string]int),
		},
		conference: &conferenceTable{
			conferences: make(map[string]*conference.Conference),
			committees:  make(map[string][]conference.Committee),
			seq:         make(map[string]int),
		},
		application:  &applicationTable{table: make(map[string]*application.Application), seq: make(map[string]int)},
		news:         &newsTable{table: make(map[string]*news.Article), seq: make(map[string]int)},
		registration: &registrationTable{},
	}
}

// newerFirst orders by descending creation time, then by descending insertion order.
func newerFirst(ti, tj int64, si, sj int) bool {
	if ti != tj {
		return ti > tj
	}
	return si > sj
}
