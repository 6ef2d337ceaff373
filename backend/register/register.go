package register

import (
	_ "github.com/genostore/genostore/backend/mem"
	_ "github.com/genostore/genostore/backend/s3"
)
