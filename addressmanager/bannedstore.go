package addressmanager

import (
	"bytes"
	"net"

	"github.com/dagchain/ghostnode/domain/consensus/database/binaryserialization"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
)

var bannedBucket = database.MakeBucket([]byte("banned-addresses"))

// bannedKey returns the database key of ip's ban timestamp. The banned-IP
// map is read and written straight through the database by the helpers
// below: unlike the not-banned side it has no enumeration or sampling
// requirement, so it carries no in-memory mirror.
func bannedKey(ip net.IP) *database.Key {
	return bannedBucket.Key(ip.To16())
}

func setBanTimestamp(db database.DataAccessor, ip net.IP, unixSeconds int64) error {
	buf := new(bytes.Buffer)
	binaryserialization.WriteUint64(buf, uint64(unixSeconds))
	return db.Put(bannedKey(ip), buf.Bytes())
}

func getBanTimestamp(db database.DataAccessor, ip net.IP) (timestamp int64, found bool, err error) {
	value, err := db.Get(bannedKey(ip))
	if err != nil {
		if database.IsNotFoundError(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	unixSeconds, err := binaryserialization.ReadUint64(bytes.NewReader(value))
	if err != nil {
		return 0, false, err
	}
	return int64(unixSeconds), true, nil
}

func removeBan(db database.DataAccessor, ip net.IP) error {
	return db.Delete(bannedKey(ip))
}
