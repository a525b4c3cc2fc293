/*
Package proto implements the MX network message protocol.

MX Message

An MX message looks like
  +-------------------------------+----------------------------------------------------+
  | 20 or 28-byte message header  | message body depending on message type (can be 0)  |
  +-------------------------------+----------------------------------------------------+

Message header
        | 0| 1| 2| 3| 4| 5| 6| 7| 0| 1| 2| 3| 4| 5| 6| 7| 0| 1| 2| 3| 4| 5| 6| 7| 0| 1| 2| 3| 4| 5| 6| 7|
   byte |                      0|                      1|                      2|                      3|
  ------+-----------------------+-----------------------+-----------------------+-----------------------+
      0 | magic number 0x4d584e31                                                                       |
  ------+-----------------------------------------------------------------------------------------------+
      4 | header length (20 or 28)                                                                      |
  ------+-----------------------------------------------------------------------------------------------+
      8 | body length                                                                                   |
  ------+-----------------------------------------------------------------------------------------------+
     12 | message type                                                                                  |
  ------+-----------------------------------------------------------------------------------------------+
     16 | status                                                                                        |
  ------+-----------------------------------------------------------------------------------------------+
     20 | data type                                                            (message-id capable only) |
  ------+-----------------------------------------------------------------------------------------------+
     24 |C| message id                                                         (message-id capable only) |
  ------+-----------------------------------------------------------------------------------------------+

  message type:
    0x1001  GetByName
    0x1002  PutByName
    0x1003  GetByHandle
    0x1004  PutByHandle
    0x1005  GetNetworkHandle
    0x1006  GetFieldType
    0x1007  SetClientInfo
    0x1008  GetOption
    0x1009  SetOption
    0x100A  GetAttribute
    0x100B  SetAttribute
    0x100C  AddCallback
    0x100D  DeleteCallback
    0x100E  Callback (server push only)

    A response carries the request type with bit 31 set. Requests of an
    unknown type are answered with UnexpectedError (0x80000001).

  C:
    set on server pushes of value-changed callbacks. The remaining bits hold
    the callback id.

Message bodies

  by name:    NUL terminated "record.field", zero padded to 4 bytes, then the value
  by handle:  [record handle][field handle], then the value
  get-field-type reply:  [datatype][number of dimensions][dimension]...
  add-callback:          [record handle][field handle][callback class], reply [callback id]
  delete-callback:       [callback id]
  get-option:            [option], reply [value]
  set-option:            [option][value]
  get-attribute:         name, [attribute], reply 8-byte big-endian double
  set-attribute:         name, [attribute], 8-byte big-endian double
  set-client-info:       "username program pid"

  Status-only replies carry one NUL byte. Error replies carry a NUL
  terminated message and a nonzero status.

Value payloads

  token      space separated text tokens, NUL terminated
  raw        native width and byte order, strings NUL padded to their maximum length
  portable   XDR: big-endian, 4-byte aligned, strings length prefixed
*/
package proto
